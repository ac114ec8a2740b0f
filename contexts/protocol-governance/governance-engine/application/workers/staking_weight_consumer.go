package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/protocol-governance/governance-engine/application"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

const (
	stakingWeightTopic     = "staking.weight.updated"
	defaultStakingConsumer = "governance-engine-staking-cg"
)

// StakingWeightConsumer keeps the local account-weight projection aligned
// with the external staking system. Events are deduplicated by event id so
// broker redeliveries cannot re-apply stale weights.
type StakingWeightConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Weights       ports.WeightProjection
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

type stakingWeightPayload struct {
	Account string `json:"account"`
	Weight  uint64 `json:"weight"`
}

// Start subscribes to staking weight updates. The consumer group can be
// overridden for environment-specific deployment.
func (c StakingWeightConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("staking weight consumer disabled by feature flag",
			"event", "governance_staking_consumer_disabled",
			"module", "protocol-governance/governance-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultStakingConsumer
	}
	return c.Subscriber.Subscribe(ctx, stakingWeightTopic, group, c.handleWeightUpdated)
}

func (c StakingWeightConsumer) handleWeightUpdated(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload stakingWeightPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("staking weight payload decode failed",
			"event", "governance_staking_decode_failed",
			"module", "protocol-governance/governance-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	account := strings.TrimSpace(payload.Account)
	if account == "" {
		logger.Warn("staking weight event without account dropped",
			"event", "governance_staking_missing_account",
			"module", "protocol-governance/governance-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	ttl := c.DedupTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	sum := sha256.Sum256(event.Data)
	fresh, err := c.Dedup.ReserveEvent(ctx, event.EventID, hex.EncodeToString(sum[:]), now.Add(ttl))
	if err != nil {
		return err
	}
	if !fresh {
		logger.Debug("staking weight event already processed",
			"event", "governance_staking_duplicate",
			"module", "protocol-governance/governance-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	if err := c.Weights.SetAccountWeight(ctx, account, payload.Weight, now); err != nil {
		return err
	}
	logger.Info("staking weight projection updated",
		"event", "governance_staking_weight_updated",
		"module", "protocol-governance/governance-engine",
		"layer", "worker",
		"account", account,
		"weight", payload.Weight,
	)
	return nil
}
