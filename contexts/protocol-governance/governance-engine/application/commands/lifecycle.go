package commands

import (
	"context"
	"log/slog"
	"sync"

	application "agora/contexts/protocol-governance/governance-engine/application"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// ExecuteProposalResult carries the finalized outcome.
type ExecuteProposalResult struct {
	Status        entities.ProposalStatus
	WinningOption int
	HighestWeight uint64
	CountedVotes  uint64
}

// LifecycleUseCase finalizes proposals after their timelock. Outcomes are
// terminal; a second execution attempt fails with ErrInvalidProposalStatus
// and never moves a counter again.
type LifecycleUseCase struct {
	Store  ports.GovernanceStore
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Gate   *sync.Mutex
	Logger *slog.Logger
}

// ExecuteProposal finalizes an active proposal once its timelock elapsed.
// Below the minimum-votes threshold the proposal is Defeated. Otherwise the
// leader is recomputed by scanning every option tally, because the running
// leader maintained at cast time does not track ties: options tied at the
// maximum yield the terminal Tie status with no winner recorded.
func (uc LifecycleUseCase) ExecuteProposal(ctx context.Context, caller string, proposalID uint64) (ExecuteProposalResult, error) {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	if err := requireMultisig(ctx, uc.Store, caller); err != nil {
		return ExecuteProposalResult{}, err
	}
	proposal, err := uc.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return ExecuteProposalResult{}, err
	}
	now := resolveNow(uc.Clock)
	if now.Before(proposal.TimelockEnd) {
		return ExecuteProposalResult{}, domainerrors.ErrTimelockNotOver
	}
	if proposal.Status != entities.ProposalStatusActive {
		return ExecuteProposalResult{}, domainerrors.ErrInvalidProposalStatus
	}

	stats, err := uc.Store.GetStats(ctx)
	if err != nil {
		return ExecuteProposalResult{}, err
	}

	if proposal.CountedVotes < proposal.MinimumVotes {
		proposal.Status = entities.ProposalStatusDefeated
		stats.ExecutedProposals++
		stats.DefeatedProposals++
		err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
			return uc.finalize(ctx, store, proposal, stats)
		})
		if err != nil {
			return ExecuteProposalResult{}, err
		}
		logger.Info("proposal defeated below quorum",
			"event", "governance_proposal_executed",
			"module", "protocol-governance/governance-engine",
			"layer", "application",
			"proposal_id", proposalID,
			"status", string(proposal.Status),
			"counted_votes", proposal.CountedVotes,
			"minimum_votes", proposal.MinimumVotes,
		)
		return ExecuteProposalResult{
			Status:       proposal.Status,
			CountedVotes: proposal.CountedVotes,
		}, nil
	}

	winner, highest, tied, err := uc.scanTallies(ctx, proposal)
	if err != nil {
		return ExecuteProposalResult{}, err
	}
	if tied {
		proposal.Status = entities.ProposalStatusTie
	} else {
		proposal.Status = entities.ProposalStatusSucceeded
		proposal.WinningOption = winner
		proposal.HighestWeight = highest
	}
	stats.ExecutedProposals++
	stats.SucceededProposals++
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		return uc.finalize(ctx, store, proposal, stats)
	})
	if err != nil {
		return ExecuteProposalResult{}, err
	}

	logger.Info("proposal executed",
		"event", "governance_proposal_executed",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", proposalID,
		"status", string(proposal.Status),
		"winning_option", proposal.WinningOption,
		"highest_weight", proposal.HighestWeight,
	)
	return ExecuteProposalResult{
		Status:        proposal.Status,
		WinningOption: proposal.WinningOption,
		HighestWeight: proposal.HighestWeight,
		CountedVotes:  proposal.CountedVotes,
	}, nil
}

// scanTallies recomputes the leading option from scratch and reports
// whether two or more options share the maximum.
func (uc LifecycleUseCase) scanTallies(ctx context.Context, proposal entities.Proposal) (int, uint64, bool, error) {
	winner := 0
	var highest uint64
	tiedAtMax := 0
	for option := range proposal.Options {
		weight, err := uc.Store.GetOptionWeight(ctx, proposal.ProposalID, option)
		if err != nil {
			return 0, 0, false, err
		}
		switch {
		case weight > highest:
			highest = weight
			winner = option
			tiedAtMax = 1
		case weight == highest:
			tiedAtMax++
		}
	}
	return winner, highest, tiedAtMax > 1, nil
}

func (uc LifecycleUseCase) finalize(ctx context.Context, store ports.GovernanceStore, proposal entities.Proposal, stats entities.GovernanceStats) error {
	if err := store.SaveProposal(ctx, proposal); err != nil {
		return err
	}
	if err := store.RemoveActiveProposal(ctx, proposal.ProposalID); err != nil {
		return err
	}
	if err := store.SaveStats(ctx, stats); err != nil {
		return err
	}
	return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalExecuted, proposal.ProposalID, resolveNow(uc.Clock), map[string]any{
		"proposal_id":    proposal.ProposalID,
		"status":         string(proposal.Status),
		"winning_option": proposal.WinningOption,
		"highest_weight": proposal.HighestWeight,
		"counted_votes":  proposal.CountedVotes,
	})
}
