package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

func TestCastVoteTalliesAndExecute(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 5)
	proposal := createProposal(t, module, 1)

	result, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.Status != "active" {
		t.Fatalf("expected first vote to activate the proposal, got %s", result.Status)
	}
	if result.VoterWeight != 5 || result.TotalWeight != 5 || result.CountedVotes != 1 {
		t.Fatalf("unexpected cast result: %+v", result)
	}

	active, err := module.Handler.ActiveProposalsHandler(context.Background())
	if err != nil {
		t.Fatalf("active list failed: %v", err)
	}
	if len(active.Items) != 1 || active.Items[0] != proposal.ProposalID {
		t.Fatalf("expected active index [%d], got %v", proposal.ProposalID, active.Items)
	}

	tally, err := module.Handler.OptionTallyHandler(context.Background(), proposal.ProposalID, 0)
	if err != nil {
		t.Fatalf("option tally failed: %v", err)
	}
	if tally.Weight != 5 {
		t.Fatalf("expected tally 5, got %d", tally.Weight)
	}

	module.Store.Advance(100 * time.Second)
	executed, err := module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if executed.Status != "succeeded" || executed.WinningOption != 0 || executed.HighestWeight != 5 {
		t.Fatalf("unexpected execution result: %+v", executed)
	}

	module.Store.Advance(time.Second)
	winner, err := module.Handler.WinningOptionHandler(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("winning option failed: %v", err)
	}
	if winner.Option != 0 || winner.Label != "approve" || winner.Weight != 5 {
		t.Fatalf("unexpected winner: %+v", winner)
	}

	stats, err := module.Handler.StatsHandler(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ExecutedProposals != 1 || stats.SucceededProposals != 1 || stats.DefeatedProposals != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	remaining, err := module.Handler.ActiveProposalsHandler(context.Background())
	if err != nil {
		t.Fatalf("active list failed: %v", err)
	}
	if len(remaining.Items) != 0 {
		t.Fatalf("expected empty active index after execution, got %v", remaining.Items)
	}
}

func TestCastVotePreconditions(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 3)

	_, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", 99, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrProposalNotExists) {
		t.Fatalf("expected proposal-not-exists, got %v", err)
	}

	proposal := createProposal(t, module, 1)

	_, err = module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 2})
	if !errors.Is(err, domainerrors.ErrInvalidOption) {
		t.Fatalf("expected invalid-option, got %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	_, err = module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 1})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already-voted, got %v", err)
	}

	module.Store.Advance(100 * time.Second)
	_, err = module.Handler.CastVoteHandler(context.Background(), "voter-2", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrVotingNotActive) {
		t.Fatalf("expected voting-not-active after vote end, got %v", err)
	}

	cancelled := createProposal(t, module, 1)
	if err := module.Handler.CancelProposalHandler(context.Background(), govMultisig, cancelled.ProposalID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	_, err = module.Handler.CastVoteHandler(context.Background(), "voter-1", cancelled.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrInvalidProposalStatus) {
		t.Fatalf("expected invalid-status on cancelled proposal, got %v", err)
	}
}

func TestCastVoteRejectedBeforeVoteStart(t *testing.T) {
	module := newGovernanceModule(t)
	err := module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    50,
		VoteDurationSeconds: 100,
		TimelockSeconds:     0,
	})
	if err != nil {
		t.Fatalf("update voting params failed: %v", err)
	}
	module.Store.SetWeight("voter-1", 3)
	proposal := createProposal(t, module, 1)

	_, err = module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrVotingNotActive) {
		t.Fatalf("expected voting-not-active before vote start, got %v", err)
	}

	module.Store.Advance(50 * time.Second)
	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast at vote start failed: %v", err)
	}
}

func TestDelegatorCannotVoteDirectly(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("delegator-1", 2)
	module.Store.SetWeight("delegator-2", 2)
	proposal := createProposal(t, module, 1)

	err := module.Handler.DelegateForProposalHandler(context.Background(), "delegator-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "delegatee-1"})
	if err != nil {
		t.Fatalf("proposal delegation failed: %v", err)
	}
	_, err = module.Handler.CastVoteHandler(context.Background(), "delegator-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrDelegatorCannotVote) {
		t.Fatalf("expected delegator-cannot-vote for proposal scope, got %v", err)
	}

	if err := module.Handler.DelegateGloballyHandler(context.Background(), "delegator-2", httptransport.DelegateRequest{Delegatee: "delegatee-1"}); err != nil {
		t.Fatalf("global delegation failed: %v", err)
	}
	_, err = module.Handler.CastVoteHandler(context.Background(), "delegator-2", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if !errors.Is(err, domainerrors.ErrDelegatorCannotVote) {
		t.Fatalf("expected delegator-cannot-vote for global scope, got %v", err)
	}
}

func TestCastVoteSweepsProposalDelegators(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("delegatee-1", 3)
	module.Store.SetWeight("delegator-a", 2)
	module.Store.SetWeight("delegator-b", 0)
	module.Store.SetWeight("global-only", 7)
	proposal := createProposal(t, module, 1)

	for _, delegator := range []string{"delegator-a", "delegator-b"} {
		err := module.Handler.DelegateForProposalHandler(context.Background(), delegator, proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "delegatee-1"})
		if err != nil {
			t.Fatalf("proposal delegation for %s failed: %v", delegator, err)
		}
	}
	if err := module.Handler.DelegateGloballyHandler(context.Background(), "global-only", httptransport.DelegateRequest{Delegatee: "delegatee-1"}); err != nil {
		t.Fatalf("global delegation failed: %v", err)
	}

	result, err := module.Handler.CastVoteHandler(context.Background(), "delegatee-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 1})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.VoterWeight != 3 || result.TotalWeight != 5 {
		t.Fatalf("expected own weight 3 and total 5, got %+v", result)
	}
	if len(result.ResolvedDelegators) != 1 || result.ResolvedDelegators[0] != "delegator-a" {
		t.Fatalf("expected only the weighted delegator swept, got %v", result.ResolvedDelegators)
	}
	if result.CountedVotes != 2 {
		t.Fatalf("expected 2 counted votes, got %d", result.CountedVotes)
	}

	record, err := module.Handler.VoterChoiceHandler(context.Background(), proposal.ProposalID, "delegator-a")
	if err != nil {
		t.Fatalf("voter choice failed: %v", err)
	}
	if !record.ByProxy || record.Option != 1 || record.Weight != 2 {
		t.Fatalf("unexpected proxy record: %+v", record)
	}

	globalVoted, err := module.Handler.HasVotedHandler(context.Background(), proposal.ProposalID, "global-only")
	if err != nil {
		t.Fatalf("has-voted failed: %v", err)
	}
	if globalVoted.HasVoted {
		t.Fatalf("global-only delegator must not be swept by a proposal cast")
	}

	history, err := module.Handler.VoterHistoryHandler(context.Background(), "delegator-a")
	if err != nil {
		t.Fatalf("voter history failed: %v", err)
	}
	if len(history.ProposalIDs) != 1 || history.ProposalIDs[0] != proposal.ProposalID {
		t.Fatalf("expected proxy vote in history, got %v", history.ProposalIDs)
	}
}

func TestZeroWeightVoteRecordedButUncounted(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	result, err := module.Handler.CastVoteHandler(context.Background(), "featherweight-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.VoterWeight != 0 || result.TotalWeight != 0 || result.CountedVotes != 0 {
		t.Fatalf("zero-weight cast must not count: %+v", result)
	}

	voted, err := module.Handler.HasVotedHandler(context.Background(), proposal.ProposalID, "featherweight-1")
	if err != nil {
		t.Fatalf("has-voted failed: %v", err)
	}
	if !voted.HasVoted {
		t.Fatalf("zero-weight vote must still be recorded")
	}

	streak, err := module.Handler.VoteStreakHandler(context.Background(), "featherweight-1")
	if err != nil {
		t.Fatalf("vote streak failed: %v", err)
	}
	if streak.Streak != 0 {
		t.Fatalf("zero-weight vote must not start a streak, got %d", streak.Streak)
	}
}

func TestTieLeavesNoWinner(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 4)
	module.Store.SetWeight("voter-2", 4)
	proposal := createProposal(t, module, 1)

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-2", proposal.ProposalID, httptransport.CastVoteRequest{Option: 1}); err != nil {
		t.Fatalf("second vote failed: %v", err)
	}

	module.Store.Advance(100 * time.Second)
	executed, err := module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if executed.Status != "tie" {
		t.Fatalf("expected tie status, got %s", executed.Status)
	}

	module.Store.Advance(time.Second)
	_, err = module.Handler.WinningOptionHandler(context.Background(), proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrProposalNotSucceeded) {
		t.Fatalf("expected proposal-not-succeeded after tie, got %v", err)
	}
}

func TestBelowQuorumDefeated(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 4)
	proposal := createProposal(t, module, 2)

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	module.Store.Advance(100 * time.Second)
	executed, err := module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if executed.Status != "defeated" || executed.CountedVotes != 1 {
		t.Fatalf("expected defeat below quorum, got %+v", executed)
	}

	stats, err := module.Handler.StatsHandler(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ExecutedProposals != 1 || stats.DefeatedProposals != 1 || stats.SucceededProposals != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	_, err = module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrInvalidProposalStatus) {
		t.Fatalf("expected invalid-status on re-execution, got %v", err)
	}
}

func TestExecuteRespectsTimelock(t *testing.T) {
	module := newGovernanceModule(t)
	err := module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    0,
		VoteDurationSeconds: 100,
		TimelockSeconds:     50,
	})
	if err != nil {
		t.Fatalf("update voting params failed: %v", err)
	}
	module.Store.SetWeight("voter-1", 4)
	proposal := createProposal(t, module, 1)

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	module.Store.Advance(100 * time.Second)
	_, err = module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrTimelockNotOver) {
		t.Fatalf("expected timelock-not-over at vote end, got %v", err)
	}

	_, err = module.Handler.WinningOptionHandler(context.Background(), proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrTimelockNotOver) {
		t.Fatalf("expected timelock-not-over on winner query, got %v", err)
	}

	module.Store.Advance(50 * time.Second)
	executed, err := module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if err != nil {
		t.Fatalf("execute after timelock failed: %v", err)
	}
	if executed.Status != "succeeded" {
		t.Fatalf("expected success after timelock, got %s", executed.Status)
	}
}

func TestVoteStreakTracksConsecutiveProposals(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 2)

	var proposals []uint64
	for i := 0; i < 4; i++ {
		proposals = append(proposals, createProposal(t, module, 1).ProposalID)
	}

	for _, id := range proposals[:2] {
		if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", id, httptransport.CastVoteRequest{Option: 0}); err != nil {
			t.Fatalf("cast on proposal %d failed: %v", id, err)
		}
	}
	streak, err := module.Handler.VoteStreakHandler(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("vote streak failed: %v", err)
	}
	if streak.Streak != 2 {
		t.Fatalf("expected streak 2 after consecutive votes, got %d", streak.Streak)
	}

	// Skipping proposal 3 restarts the streak on proposal 4.
	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposals[3], httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast on proposal %d failed: %v", proposals[3], err)
	}
	streak, err = module.Handler.VoteStreakHandler(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("vote streak failed: %v", err)
	}
	if streak.Streak != 1 {
		t.Fatalf("expected streak reset to 1 after a gap, got %d", streak.Streak)
	}
}
