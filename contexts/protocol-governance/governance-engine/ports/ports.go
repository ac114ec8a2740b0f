package ports

import (
	"context"
	"time"

	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	"agora/internal/shared/events"
)

// GovernanceStore owns the authoritative governance state: the proposal
// table, vote records, option tallies, delegation edges with their reverse
// indexes, counters, configuration, and the access policy. Index structures
// (active/cancelled id sets, delegator reverse index, inbound counters) are
// maintained by the store alongside the primary records, never derived
// lazily.
type GovernanceStore interface {
	// WithinTx runs fn against a transaction-scoped store. Every write fn
	// issues, outbox appends included, commits or rolls back as one unit, so
	// a failing command leaves no partial state behind.
	WithinTx(ctx context.Context, fn func(store GovernanceStore) error) error

	// NextProposalID returns the next monotonic id, starting at 1.
	NextProposalID(ctx context.Context) (uint64, error)
	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	ListActiveProposalIDs(ctx context.Context) ([]uint64, error)
	ListCancelledProposalIDs(ctx context.Context) ([]uint64, error)
	AddActiveProposal(ctx context.Context, proposalID uint64) error
	RemoveActiveProposal(ctx context.Context, proposalID uint64) error
	AddCancelledProposal(ctx context.Context, proposalID uint64) error

	SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error
	GetVoteRecord(ctx context.Context, proposalID uint64, voter string) (entities.VoteRecord, bool, error)
	DeleteVoteRecord(ctx context.Context, proposalID uint64, voter string) error
	ListVoterProposalIDs(ctx context.Context, voter string) ([]uint64, error)
	AppendVoterProposalID(ctx context.Context, voter string, proposalID uint64) error
	RemoveVoterProposalID(ctx context.Context, voter string, proposalID uint64) error

	AddOptionWeight(ctx context.Context, proposalID uint64, option int, weight uint64) error
	GetOptionWeight(ctx context.Context, proposalID uint64, option int) (uint64, error)

	// SaveDelegation records an edge and maintains the delegatee's reverse
	// index and combined inbound counter; DeleteDelegation reverses both.
	SaveDelegation(ctx context.Context, delegation entities.Delegation) error
	DeleteDelegation(ctx context.Context, scope entities.DelegationScope, proposalID uint64, delegator string) error
	GetGlobalDelegation(ctx context.Context, delegator string) (entities.Delegation, bool, error)
	GetProposalDelegation(ctx context.Context, proposalID uint64, delegator string) (entities.Delegation, bool, error)
	ListProposalDelegators(ctx context.Context, proposalID uint64, delegatee string) ([]string, error)
	DelegatorCount(ctx context.Context, delegatee string) (int, error)

	GetStats(ctx context.Context) (entities.GovernanceStats, error)
	SaveStats(ctx context.Context, stats entities.GovernanceStats) error
	GetVoteStreak(ctx context.Context, voter string) (uint64, error)
	SaveVoteStreak(ctx context.Context, voter string, streak uint64) error

	GetVotingConfig(ctx context.Context) (entities.VotingConfig, error)
	SaveVotingConfig(ctx context.Context, config entities.VotingConfig) error
	GetAccessPolicy(ctx context.Context) (entities.AccessPolicy, error)
	SaveAccessPolicy(ctx context.Context, policy entities.AccessPolicy) error
}

// WeightSource is the external staking system boundary. It is queried
// synchronously at cast time for each account, may return zero, and may
// revise its answer between calls.
type WeightSource interface {
	WeightOf(ctx context.Context, account string) (uint64, error)
}

// WeightProjection is the write side of the locally cached staking weights
// kept fresh by the staking weight consumer.
type WeightProjection interface {
	SetAccountWeight(ctx context.Context, account string, weight uint64, updatedAt time.Time) error
}

// Clock allows deterministic testing of the time-gated transitions.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event/outbox identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = events.Envelope

// OutboxWriter appends a notification envelope to the transactional outbox.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// EventDedupStore provides idempotent processing guarantees for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
