package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-memory governance state machine backend. All index
// structures (active/cancelled sets, reverse delegator index, inbound
// counters, voter history) are maintained eagerly next to the primary
// records. The store doubles as Clock, IDGenerator, WeightSource, and
// outbox for test wiring; SetNow/Advance make the time-gated transitions
// deterministic.
type Store struct {
	mu sync.RWMutex

	nextProposalID uint64
	proposals      map[uint64]entities.Proposal
	activeIDs      map[uint64]struct{}
	cancelledIDs   map[uint64]struct{}

	votes          map[string]entities.VoteRecord
	voterProposals map[string][]uint64
	tallies        map[string]uint64

	globalDelegations   map[string]entities.Delegation
	proposalDelegations map[string]entities.Delegation
	proposalDelegators  map[string][]string
	delegatorCounts     map[string]int

	streaks map[string]uint64
	stats   entities.GovernanceStats
	config  entities.VotingConfig
	policy  entities.AccessPolicy
	weights map[string]uint64

	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord

	now time.Time
}

func NewStore(config entities.VotingConfig, policy entities.AccessPolicy) *Store {
	return &Store{
		nextProposalID:      1,
		proposals:           make(map[uint64]entities.Proposal),
		activeIDs:           make(map[uint64]struct{}),
		cancelledIDs:        make(map[uint64]struct{}),
		votes:               make(map[string]entities.VoteRecord),
		voterProposals:      make(map[string][]uint64),
		tallies:             make(map[string]uint64),
		globalDelegations:   make(map[string]entities.Delegation),
		proposalDelegations: make(map[string]entities.Delegation),
		proposalDelegators:  make(map[string][]string),
		delegatorCounts:     make(map[string]int),
		streaks:             make(map[string]uint64),
		config:              config,
		policy: entities.AccessPolicy{
			Owner:    strings.TrimSpace(policy.Owner),
			Multisig: strings.TrimSpace(policy.Multisig),
		},
		weights:    make(map[string]uint64),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

// SetNow pins the store clock for deterministic tests.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now.UTC()
}

// Advance moves the pinned clock forward.
func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now.IsZero() {
		s.now = time.Now().UTC()
	}
	s.now = s.now.Add(d)
}

// SetWeight seeds the account-weight projection.
func (s *Store) SetWeight(account string, weight uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[strings.TrimSpace(account)] = weight
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now.IsZero() {
		return time.Now().UTC()
	}
	return s.now
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// WithinTx hands fn the store itself. In-memory writes apply immediately and
// never fail, so the identity scope preserves the all-or-nothing contract the
// postgres adapter provides with a real transaction.
func (s *Store) WithinTx(_ context.Context, fn func(store ports.GovernanceStore) error) error {
	return fn(s)
}

func (s *Store) NextProposalID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextProposalID
	s.nextProposalID++
	return id, nil
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal.Options = append([]string(nil), proposal.Options...)
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotExists
	}
	proposal.Options = append([]string(nil), proposal.Options...)
	return proposal, nil
}

func (s *Store) ListActiveProposalIDs(_ context.Context) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.activeIDs), nil
}

func (s *Store) ListCancelledProposalIDs(_ context.Context) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.cancelledIDs), nil
}

func (s *Store) AddActiveProposal(_ context.Context, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeIDs[proposalID] = struct{}{}
	return nil
}

func (s *Store) RemoveActiveProposal(_ context.Context, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeIDs, proposalID)
	return nil
}

func (s *Store) AddCancelledProposal(_ context.Context, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelledIDs[proposalID] = struct{}{}
	return nil
}

func (s *Store) SaveVoteRecord(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Voter = strings.TrimSpace(record.Voter)
	s.votes[voteKey(record.ProposalID, record.Voter)] = record
	return nil
}

func (s *Store) GetVoteRecord(_ context.Context, proposalID uint64, voter string) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.votes[voteKey(proposalID, strings.TrimSpace(voter))]
	return record, ok, nil
}

func (s *Store) DeleteVoteRecord(_ context.Context, proposalID uint64, voter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.votes, voteKey(proposalID, strings.TrimSpace(voter)))
	return nil
}

func (s *Store) ListVoterProposalIDs(_ context.Context, voter string) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.voterProposals[strings.TrimSpace(voter)]
	return append([]uint64(nil), ids...), nil
}

func (s *Store) AppendVoterProposalID(_ context.Context, voter string, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter = strings.TrimSpace(voter)
	s.voterProposals[voter] = append(s.voterProposals[voter], proposalID)
	return nil
}

func (s *Store) RemoveVoterProposalID(_ context.Context, voter string, proposalID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter = strings.TrimSpace(voter)
	ids := s.voterProposals[voter]
	filtered := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != proposalID {
			filtered = append(filtered, id)
		}
	}
	s.voterProposals[voter] = filtered
	return nil
}

func (s *Store) AddOptionWeight(_ context.Context, proposalID uint64, option int, weight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[tallyKey(proposalID, option)] += weight
	return nil
}

func (s *Store) GetOptionWeight(_ context.Context, proposalID uint64, option int) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tallies[tallyKey(proposalID, option)], nil
}

func (s *Store) SaveDelegation(_ context.Context, delegation entities.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delegation.Delegator = strings.TrimSpace(delegation.Delegator)
	delegation.Delegatee = strings.TrimSpace(delegation.Delegatee)
	switch delegation.Scope {
	case entities.DelegationScopeGlobal:
		s.globalDelegations[delegation.Delegator] = delegation
	case entities.DelegationScopeProposal:
		key := delegationKey(delegation.ProposalID, delegation.Delegator)
		s.proposalDelegations[key] = delegation
		reverse := delegationKey(delegation.ProposalID, delegation.Delegatee)
		s.proposalDelegators[reverse] = append(s.proposalDelegators[reverse], delegation.Delegator)
	default:
		return fmt.Errorf("unknown delegation scope %q", delegation.Scope)
	}
	s.delegatorCounts[delegation.Delegatee]++
	return nil
}

func (s *Store) DeleteDelegation(_ context.Context, scope entities.DelegationScope, proposalID uint64, delegator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delegator = strings.TrimSpace(delegator)
	switch scope {
	case entities.DelegationScopeGlobal:
		delegation, ok := s.globalDelegations[delegator]
		if !ok {
			return domainerrors.ErrNoDelegationToRevoke
		}
		delete(s.globalDelegations, delegator)
		s.decrementDelegatorCount(delegation.Delegatee)
	case entities.DelegationScopeProposal:
		key := delegationKey(proposalID, delegator)
		delegation, ok := s.proposalDelegations[key]
		if !ok {
			return domainerrors.ErrNoDelegationToRevoke
		}
		delete(s.proposalDelegations, key)
		reverse := delegationKey(proposalID, delegation.Delegatee)
		s.proposalDelegators[reverse] = removeAccount(s.proposalDelegators[reverse], delegator)
		s.decrementDelegatorCount(delegation.Delegatee)
	default:
		return fmt.Errorf("unknown delegation scope %q", scope)
	}
	return nil
}

func (s *Store) GetGlobalDelegation(_ context.Context, delegator string) (entities.Delegation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delegation, ok := s.globalDelegations[strings.TrimSpace(delegator)]
	return delegation, ok, nil
}

func (s *Store) GetProposalDelegation(_ context.Context, proposalID uint64, delegator string) (entities.Delegation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delegation, ok := s.proposalDelegations[delegationKey(proposalID, strings.TrimSpace(delegator))]
	return delegation, ok, nil
}

func (s *Store) ListProposalDelegators(_ context.Context, proposalID uint64, delegatee string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delegators := s.proposalDelegators[delegationKey(proposalID, strings.TrimSpace(delegatee))]
	return append([]string(nil), delegators...), nil
}

func (s *Store) DelegatorCount(_ context.Context, delegatee string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegatorCounts[strings.TrimSpace(delegatee)], nil
}

func (s *Store) GetStats(_ context.Context) (entities.GovernanceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *Store) SaveStats(_ context.Context, stats entities.GovernanceStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	return nil
}

func (s *Store) GetVoteStreak(_ context.Context, voter string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaks[strings.TrimSpace(voter)], nil
}

func (s *Store) SaveVoteStreak(_ context.Context, voter string, streak uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[strings.TrimSpace(voter)] = streak
	return nil
}

func (s *Store) GetVotingConfig(_ context.Context) (entities.VotingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

func (s *Store) SaveVotingConfig(_ context.Context, config entities.VotingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	return nil
}

func (s *Store) GetAccessPolicy(_ context.Context) (entities.AccessPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy, nil
}

func (s *Store) SaveAccessPolicy(_ context.Context, policy entities.AccessPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
	return nil
}

func (s *Store) WeightOf(_ context.Context, account string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights[strings.TrimSpace(account)], nil
}

func (s *Store) SetAccountWeight(_ context.Context, account string, weight uint64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[strings.TrimSpace(account)] = weight
	return nil
}

func (s *Store) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	s.outbox[event.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    now,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ports.OutboxMessage, 0)
	for _, record := range s.outbox {
		if !record.published {
			items = append(items, record.message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return fmt.Errorf("outbox row %s not found", outboxID)
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if existing, ok := s.eventDedup[eventID]; ok && existing.expiresAt.After(now) {
		return false, nil
	}
	s.eventDedup[eventID] = dedupRecord{payloadHash: payloadHash, expiresAt: expiresAt}
	return true, nil
}

func (s *Store) decrementDelegatorCount(delegatee string) {
	if s.delegatorCounts[delegatee] > 0 {
		s.delegatorCounts[delegatee]--
	}
}

func voteKey(proposalID uint64, voter string) string {
	return fmt.Sprintf("%d/%s", proposalID, voter)
}

func tallyKey(proposalID uint64, option int) string {
	return fmt.Sprintf("%d/%d", proposalID, option)
}

func delegationKey(proposalID uint64, account string) string {
	return fmt.Sprintf("%d/%s", proposalID, account)
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func removeAccount(accounts []string, target string) []string {
	filtered := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if account != target {
			filtered = append(filtered, account)
		}
	}
	return filtered
}

var _ ports.GovernanceStore = (*Store)(nil)
var _ ports.WeightSource = (*Store)(nil)
var _ ports.WeightProjection = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
