package queries

import (
	"context"
	"strings"
	"time"

	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// GovernanceQueries is the read-only surface. Queries never mutate state and
// observe a committed snapshot of the store.
type GovernanceQueries struct {
	Store   ports.GovernanceStore
	Weights ports.WeightSource
	Clock   ports.Clock
}

// WinningOptionResult is the finalized winner of a succeeded proposal.
type WinningOptionResult struct {
	Option int
	Label  string
	Weight uint64
}

func (q GovernanceQueries) Proposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	return q.Store.GetProposal(ctx, proposalID)
}

func (q GovernanceQueries) ProposalOptions(ctx context.Context, proposalID uint64) ([]string, error) {
	proposal, err := q.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return proposal.Options, nil
}

// VoterChoice returns the recorded vote for one account; accounts that never
// voted yield ErrNoVoteRecorded.
func (q GovernanceQueries) VoterChoice(ctx context.Context, proposalID uint64, voter string) (entities.VoteRecord, error) {
	if _, err := q.Store.GetProposal(ctx, proposalID); err != nil {
		return entities.VoteRecord{}, err
	}
	record, found, err := q.Store.GetVoteRecord(ctx, proposalID, strings.TrimSpace(voter))
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		return entities.VoteRecord{}, domainerrors.ErrNoVoteRecorded
	}
	return record, nil
}

func (q GovernanceQueries) HasVoted(ctx context.Context, proposalID uint64, voter string) (bool, error) {
	_, found, err := q.Store.GetVoteRecord(ctx, proposalID, strings.TrimSpace(voter))
	return found, err
}

func (q GovernanceQueries) ActiveProposalIDs(ctx context.Context) ([]uint64, error) {
	return q.Store.ListActiveProposalIDs(ctx)
}

func (q GovernanceQueries) CancelledProposalIDs(ctx context.Context) ([]uint64, error) {
	return q.Store.ListCancelledProposalIDs(ctx)
}

func (q GovernanceQueries) OptionTally(ctx context.Context, proposalID uint64, option int) (uint64, error) {
	proposal, err := q.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return 0, err
	}
	if option < 0 || option >= len(proposal.Options) {
		return 0, domainerrors.ErrInvalidOption
	}
	return q.Store.GetOptionWeight(ctx, proposalID, option)
}

func (q GovernanceQueries) Stats(ctx context.Context) (entities.GovernanceStats, error) {
	return q.Store.GetStats(ctx)
}

// ExecutedProposalCount is the total number of finalized executions.
func (q GovernanceQueries) ExecutedProposalCount(ctx context.Context) (uint64, error) {
	stats, err := q.Store.GetStats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.ExecutedProposals, nil
}

// DelegatorCount is the combined global + per-proposal inbound count.
func (q GovernanceQueries) DelegatorCount(ctx context.Context, delegatee string) (int, error) {
	return q.Store.DelegatorCount(ctx, strings.TrimSpace(delegatee))
}

func (q GovernanceQueries) VoterHistory(ctx context.Context, voter string) ([]uint64, error) {
	return q.Store.ListVoterProposalIDs(ctx, strings.TrimSpace(voter))
}

func (q GovernanceQueries) VoteStreak(ctx context.Context, voter string) (uint64, error) {
	return q.Store.GetVoteStreak(ctx, strings.TrimSpace(voter))
}

// AccountWeight proxies the external weight source.
func (q GovernanceQueries) AccountWeight(ctx context.Context, account string) (uint64, error) {
	return q.Weights.WeightOf(ctx, strings.TrimSpace(account))
}

func (q GovernanceQueries) HasGlobalDelegation(ctx context.Context, account string) (bool, error) {
	_, found, err := q.Store.GetGlobalDelegation(ctx, strings.TrimSpace(account))
	return found, err
}

func (q GovernanceQueries) ProposalDelegators(ctx context.Context, proposalID uint64, delegatee string) ([]string, error) {
	if _, err := q.Store.GetProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	return q.Store.ListProposalDelegators(ctx, proposalID, strings.TrimSpace(delegatee))
}

// EffectiveDelegatee resolves single-hop delegation for one voter:
// per-proposal delegation wins over global; the empty account means neither
// applies. A delegatee's own outbound delegation is never followed.
func (q GovernanceQueries) EffectiveDelegatee(ctx context.Context, proposalID uint64, voter string) (string, error) {
	voter = strings.TrimSpace(voter)
	if delegation, found, err := q.Store.GetProposalDelegation(ctx, proposalID, voter); err != nil {
		return "", err
	} else if found {
		return delegation.Delegatee, nil
	}
	if delegation, found, err := q.Store.GetGlobalDelegation(ctx, voter); err != nil {
		return "", err
	} else if found {
		return delegation.Delegatee, nil
	}
	return "", nil
}

// WinningOption reads the finalized winner. It refuses while now is at or
// before timelockEnd and for any status other than Succeeded.
func (q GovernanceQueries) WinningOption(ctx context.Context, proposalID uint64) (WinningOptionResult, error) {
	proposal, err := q.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return WinningOptionResult{}, err
	}
	now := time.Now().UTC()
	if q.Clock != nil {
		now = q.Clock.Now().UTC()
	}
	if !now.After(proposal.TimelockEnd) {
		return WinningOptionResult{}, domainerrors.ErrTimelockNotOver
	}
	if proposal.Status != entities.ProposalStatusSucceeded {
		return WinningOptionResult{}, domainerrors.ErrProposalNotSucceeded
	}
	return WinningOptionResult{
		Option: proposal.WinningOption,
		Label:  proposal.Options[proposal.WinningOption],
		Weight: proposal.HighestWeight,
	}, nil
}
