package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	application "agora/contexts/protocol-governance/governance-engine/application"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// CastVoteCommand is the write-model input for direct vote casting.
type CastVoteCommand struct {
	Caller     string
	ProposalID uint64
	Option     int
}

// CastVoteResult reports the applied vote: the caller's own weight, the
// total weight credited to the option (own + resolved per-proposal
// delegators), and the delegators swept in by this cast.
type CastVoteResult struct {
	Proposal           entities.Proposal
	Option             int
	VoterWeight        uint64
	TotalWeight        uint64
	ResolvedDelegators []string
}

// VoteUseCase validates and records votes, aggregates per-option weight,
// and tracks the running leader. Weight lookups happen through the injected
// weight source; the source is untrusted and queried once per account per
// cast.
type VoteUseCase struct {
	Store   ports.GovernanceStore
	Weights ports.WeightSource
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Gate    *sync.Mutex
	Logger  *slog.Logger
}

// delegatorShare is one per-proposal delegator resolved during a cast.
type delegatorShare struct {
	account string
	weight  uint64
}

// CastVote applies a direct vote. Preconditions run in a fixed order, each
// with a distinct failure; all weight lookups complete before any state is
// mutated so a weight-source error aborts with no partial change.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Caller)

	proposal, err := uc.Store.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return CastVoteResult{}, err
	}
	if proposal.Status == entities.ProposalStatusCancelled || proposal.Status == entities.ProposalStatusDefeated {
		return CastVoteResult{}, domainerrors.ErrInvalidProposalStatus
	}
	now := resolveNow(uc.Clock)
	if !proposal.VotingOpenAt(now) {
		return CastVoteResult{}, domainerrors.ErrVotingNotActive
	}
	if cmd.Option < 0 || cmd.Option >= len(proposal.Options) {
		return CastVoteResult{}, domainerrors.ErrInvalidOption
	}
	if _, found, err := uc.Store.GetVoteRecord(ctx, cmd.ProposalID, voter); err != nil {
		return CastVoteResult{}, err
	} else if found {
		return CastVoteResult{}, domainerrors.ErrAlreadyVoted
	}
	if _, found, err := uc.Store.GetProposalDelegation(ctx, cmd.ProposalID, voter); err != nil {
		return CastVoteResult{}, err
	} else if found {
		return CastVoteResult{}, domainerrors.ErrDelegatorCannotVote
	}
	if _, found, err := uc.Store.GetGlobalDelegation(ctx, voter); err != nil {
		return CastVoteResult{}, err
	} else if found {
		return CastVoteResult{}, domainerrors.ErrDelegatorCannotVote
	}

	voterWeight, err := uc.Weights.WeightOf(ctx, voter)
	if err != nil {
		logger.Error("weight source lookup failed",
			"event", "governance_weight_lookup_failed",
			"module", "protocol-governance/governance-engine",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter", voter,
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	// Only the per-proposal reverse index is walked here. Accounts that
	// delegated globally, never per-proposal, are pulled in solely when
	// their chosen delegatee casts; a global-only delegation to an address
	// that never votes is never swept automatically.
	shares, err := uc.resolveDelegatorShares(ctx, cmd.ProposalID, voter)
	if err != nil {
		return CastVoteResult{}, err
	}

	total := voterWeight
	resolved := make([]string, 0, len(shares))
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if !proposal.VotingStarted {
			proposal.VotingStarted = true
			proposal.Status = entities.ProposalStatusActive
			if err := store.AddActiveProposal(ctx, cmd.ProposalID); err != nil {
				return err
			}
		}

		if err := store.SaveVoteRecord(ctx, entities.VoteRecord{
			ProposalID: cmd.ProposalID,
			Voter:      voter,
			Option:     cmd.Option,
			Weight:     voterWeight,
			CastAt:     now,
		}); err != nil {
			return err
		}
		if err := store.AppendVoterProposalID(ctx, voter, cmd.ProposalID); err != nil {
			return err
		}
		if voterWeight > 0 {
			proposal.CountedVotes++
			if err := uc.bumpVoteStreak(ctx, store, cmd.ProposalID, voter); err != nil {
				return err
			}
		}

		for _, share := range shares {
			if err := store.SaveVoteRecord(ctx, entities.VoteRecord{
				ProposalID: cmd.ProposalID,
				Voter:      share.account,
				Option:     cmd.Option,
				Weight:     share.weight,
				ByProxy:    true,
				CastAt:     now,
			}); err != nil {
				return err
			}
			if err := store.AppendVoterProposalID(ctx, share.account, cmd.ProposalID); err != nil {
				return err
			}
			proposal.CountedVotes++
			total += share.weight
			resolved = append(resolved, share.account)
		}

		if err := store.AddOptionWeight(ctx, cmd.ProposalID, cmd.Option, total); err != nil {
			return err
		}
		tally, err := store.GetOptionWeight(ctx, cmd.ProposalID, cmd.Option)
		if err != nil {
			return err
		}
		// Running leader moves on strict excess only. Ties at the current
		// maximum are left for the execution-time re-scan.
		if tally > proposal.HighestWeight {
			proposal.HighestWeight = tally
			proposal.WinningOption = cmd.Option
		}
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}

		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicVoteCast, cmd.ProposalID, now, map[string]any{
			"proposal_id":         cmd.ProposalID,
			"voter":               voter,
			"option":              cmd.Option,
			"voter_weight":        voterWeight,
			"total_weight":        total,
			"resolved_delegators": resolved,
		})
	})
	if err != nil {
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "governance_vote_cast",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"voter", voter,
		"option", cmd.Option,
		"voter_weight", voterWeight,
		"total_weight", total,
		"resolved_delegators", len(resolved),
	)
	return CastVoteResult{
		Proposal:           proposal,
		Option:             cmd.Option,
		VoterWeight:        voterWeight,
		TotalWeight:        total,
		ResolvedDelegators: resolved,
	}, nil
}

// resolveDelegatorShares collects every per-proposal delegator of the voter
// that has not voted yet and carries nonzero weight. Lookups run before any
// mutation; the order is fixed for deterministic event payloads.
func (uc VoteUseCase) resolveDelegatorShares(ctx context.Context, proposalID uint64, voter string) ([]delegatorShare, error) {
	delegators, err := uc.Store.ListProposalDelegators(ctx, proposalID, voter)
	if err != nil {
		return nil, err
	}
	sort.Strings(delegators)

	shares := make([]delegatorShare, 0, len(delegators))
	for _, delegator := range delegators {
		if _, found, err := uc.Store.GetVoteRecord(ctx, proposalID, delegator); err != nil {
			return nil, err
		} else if found {
			continue
		}
		weight, err := uc.Weights.WeightOf(ctx, delegator)
		if err != nil {
			return nil, err
		}
		if weight == 0 {
			continue
		}
		shares = append(shares, delegatorShare{account: delegator, weight: weight})
	}
	return shares, nil
}

// bumpVoteStreak extends the voter's consecutive-vote streak when the
// immediately preceding proposal id carries their vote, otherwise restarts
// the streak at one.
func (uc VoteUseCase) bumpVoteStreak(ctx context.Context, store ports.GovernanceStore, proposalID uint64, voter string) error {
	if proposalID > 1 {
		if _, found, err := store.GetVoteRecord(ctx, proposalID-1, voter); err != nil {
			return err
		} else if found {
			streak, err := store.GetVoteStreak(ctx, voter)
			if err != nil {
				return err
			}
			return store.SaveVoteStreak(ctx, voter, streak+1)
		}
	}
	return store.SaveVoteStreak(ctx, voter, 1)
}
