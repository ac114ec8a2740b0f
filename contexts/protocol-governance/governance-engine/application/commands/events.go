package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"agora/contexts/protocol-governance/governance-engine/ports"
)

// Notification topics emitted by the engine.
const (
	TopicProposalCreated     = "proposal.created"
	TopicProposalUpdated     = "proposal.updated"
	TopicProposalCancelled   = "proposal.cancelled"
	TopicProposalExtended    = "proposal.extended"
	TopicProposalExecuted    = "proposal.executed"
	TopicProposalDataRemoved = "proposal.data_removed"
	TopicVoteCast            = "vote.cast"
	TopicDelegationGranted   = "delegation.granted"
	TopicDelegationRevoked   = "delegation.revoked"
	TopicVotingParamsUpdated = "governance.voting_params_updated"
	TopicDelegatorLimit      = "governance.delegator_limit_updated"
	TopicMultisigTransferred = "governance.multisig_transferred"
	TopicOwnershipTransfer   = "governance.ownership_transferred"
)

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	proposalID uint64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by proposal for stable ordering on
	// proposal-scoped consumers. Administrative events carry partition key 0.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "governance-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "proposal_id",
		PartitionKey:     strconv.FormatUint(proposalID, 10),
		Data:             payload,
	}, nil
}

// txOutbox routes outbox appends through the transaction-scoped store when
// it can write outbox rows, so the notification insert commits with the state
// change it describes. A nil fallback keeps the outbox disabled.
func txOutbox(store ports.GovernanceStore, fallback ports.OutboxWriter) ports.OutboxWriter {
	if fallback == nil {
		return nil
	}
	if writer, ok := store.(ports.OutboxWriter); ok {
		return writer
	}
	return fallback
}

// appendGovernanceEvent appends one notification envelope to the outbox.
// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
func appendGovernanceEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	eventType string,
	proposalID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil {
		return nil
	}
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newGovernanceEnvelope(eventID, eventType, proposalID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}
