package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	governanceengine "agora/contexts/protocol-governance/governance-engine"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

const (
	govOwner    = "owner-1"
	govMultisig = "multisig-1"
)

var govEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newGovernanceModule pins the clock and installs fast voting parameters:
// no delay, a 100 second window, and no timelock.
func newGovernanceModule(t *testing.T) governanceengine.Module {
	t.Helper()
	module := governanceengine.NewInMemoryModule(govOwner, govMultisig, nil)
	module.Store.SetNow(govEpoch)
	err := module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    0,
		VoteDurationSeconds: 100,
		TimelockSeconds:     0,
	})
	if err != nil {
		t.Fatalf("update voting params failed: %v", err)
	}
	return module
}

func createProposal(t *testing.T, module governanceengine.Module, minimumVotes uint64, options ...string) httptransport.ProposalResponse {
	t.Helper()
	if len(options) == 0 {
		options = []string{"approve", "reject"}
	}
	resp, err := module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		Description:  "test proposal",
		Options:      options,
		MinimumVotes: minimumVotes,
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	return resp
}

func TestProposalWindowsFollowConfiguredParams(t *testing.T) {
	module := newGovernanceModule(t)

	proposal := createProposal(t, module, 1)
	if proposal.ProposalID != 1 {
		t.Fatalf("expected first proposal id 1, got %d", proposal.ProposalID)
	}
	if proposal.Status != "pending" {
		t.Fatalf("expected pending status, got %s", proposal.Status)
	}
	if !proposal.VoteStart.Equal(govEpoch) {
		t.Fatalf("expected vote start at epoch, got %v", proposal.VoteStart)
	}
	if !proposal.VoteEnd.Equal(govEpoch.Add(100 * time.Second)) {
		t.Fatalf("expected vote end epoch+100s, got %v", proposal.VoteEnd)
	}
	if !proposal.TimelockEnd.Equal(proposal.VoteEnd) {
		t.Fatalf("expected zero timelock, got %v", proposal.TimelockEnd)
	}

	second := createProposal(t, module, 1)
	if second.ProposalID != 2 {
		t.Fatalf("expected monotonic id 2, got %d", second.ProposalID)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	module := newGovernanceModule(t)

	_, err := module.Handler.CreateProposalHandler(context.Background(), "stranger-1", httptransport.CreateProposalRequest{
		Options: []string{"a", "b"},
	})
	if !errors.Is(err, domainerrors.ErrOnlyMultisig) {
		t.Fatalf("expected only-multisig error, got %v", err)
	}

	_, err = module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		Options: []string{"only-one"},
	})
	if !errors.Is(err, domainerrors.ErrAtLeastTwoOptionsRequired) {
		t.Fatalf("expected min-options error, got %v", err)
	}

	_, err = module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		Options: []string{"a", "b", "c", "d", "e"},
	})
	if !errors.Is(err, domainerrors.ErrOptionsLimitExceeded) {
		t.Fatalf("expected max-options error, got %v", err)
	}

	_, err = module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		ProposalType: "emergency",
		Options:      []string{"a", "b"},
	})
	if !errors.Is(err, domainerrors.ErrInvalidProposalType) {
		t.Fatalf("expected invalid-type error, got %v", err)
	}
}

func TestUpdateProposalOnlyBeforeVoteStart(t *testing.T) {
	module := newGovernanceModule(t)
	err := module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    50,
		VoteDurationSeconds: 100,
		TimelockSeconds:     0,
	})
	if err != nil {
		t.Fatalf("update voting params failed: %v", err)
	}
	proposal := createProposal(t, module, 1)

	updated, err := module.Handler.UpdateProposalHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.UpdateProposalRequest{
		Description: "revised",
		Options:     []string{"yes", "no", "abstain"},
	})
	if err != nil {
		t.Fatalf("pre-start update failed: %v", err)
	}
	if len(updated.Options) != 3 || updated.Description != "revised" {
		t.Fatalf("unexpected updated proposal: %+v", updated)
	}
	if !updated.VoteStart.Equal(proposal.VoteStart) || !updated.VoteEnd.Equal(proposal.VoteEnd) {
		t.Fatalf("update must not move the voting window")
	}

	module.Store.Advance(50 * time.Second)
	_, err = module.Handler.UpdateProposalHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.UpdateProposalRequest{
		Description: "too late",
		Options:     []string{"yes", "no"},
	})
	if !errors.Is(err, domainerrors.ErrVotingAlreadyStarted) {
		t.Fatalf("expected voting-already-started error, got %v", err)
	}
}

func TestCancelProposalWindow(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	module.Store.Advance(99 * time.Second)
	if err := module.Handler.CancelProposalHandler(context.Background(), govMultisig, proposal.ProposalID); err != nil {
		t.Fatalf("cancel one second before vote end failed: %v", err)
	}
	cancelled, err := module.Handler.CancelledProposalsHandler(context.Background())
	if err != nil {
		t.Fatalf("cancelled list failed: %v", err)
	}
	if len(cancelled.Items) != 1 || cancelled.Items[0] != proposal.ProposalID {
		t.Fatalf("expected cancelled index [%d], got %v", proposal.ProposalID, cancelled.Items)
	}

	err = module.Handler.CancelProposalHandler(context.Background(), govMultisig, proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrInvalidProposalStatus) {
		t.Fatalf("expected invalid-status on double cancel, got %v", err)
	}

	second := createProposal(t, module, 1)
	module.Store.Advance(100 * time.Second)
	err = module.Handler.CancelProposalHandler(context.Background(), govMultisig, second.ProposalID)
	if !errors.Is(err, domainerrors.ErrVotingAlreadyEnded) {
		t.Fatalf("expected voting-already-ended at vote end, got %v", err)
	}
}

func TestExtendVotingCeiling(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	_, err := module.Handler.ExtendVotingHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.ExtendVotingRequest{})
	if !errors.Is(err, domainerrors.ErrInvalidExtensionTime) {
		t.Fatalf("expected invalid-extension-time for zero, got %v", err)
	}

	var extended httptransport.ProposalResponse
	for i := 0; i < 3; i++ {
		extended, err = module.Handler.ExtendVotingHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.ExtendVotingRequest{
			AdditionalSeconds: 10,
		})
		if err != nil {
			t.Fatalf("extension %d failed: %v", i+1, err)
		}
	}
	if extended.Extensions != 3 {
		t.Fatalf("expected 3 extensions, got %d", extended.Extensions)
	}
	if !extended.VoteEnd.Equal(proposal.VoteEnd.Add(30 * time.Second)) {
		t.Fatalf("expected vote end pushed by 30s, got %v", extended.VoteEnd)
	}
	if !extended.TimelockEnd.Equal(proposal.TimelockEnd.Add(30 * time.Second)) {
		t.Fatalf("expected timelock end pushed by 30s, got %v", extended.TimelockEnd)
	}

	_, err = module.Handler.ExtendVotingHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.ExtendVotingRequest{
		AdditionalSeconds: 10,
	})
	if !errors.Is(err, domainerrors.ErrExtensionLimitReached) {
		t.Fatalf("expected extension-limit error on fourth extension, got %v", err)
	}
}

func TestVotingParamsApplyToNewProposalsOnly(t *testing.T) {
	module := newGovernanceModule(t)
	first := createProposal(t, module, 1)

	err := module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    10,
		VoteDurationSeconds: 200,
		TimelockSeconds:     30,
	})
	if err != nil {
		t.Fatalf("update voting params failed: %v", err)
	}

	unchanged, err := module.Handler.ProposalHandler(context.Background(), first.ProposalID)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if !unchanged.VoteEnd.Equal(first.VoteEnd) || !unchanged.TimelockEnd.Equal(first.TimelockEnd) {
		t.Fatalf("existing proposal window must not move on param update")
	}

	second := createProposal(t, module, 1)
	if !second.VoteStart.Equal(govEpoch.Add(10 * time.Second)) {
		t.Fatalf("expected delayed vote start, got %v", second.VoteStart)
	}
	if !second.VoteEnd.Equal(second.VoteStart.Add(200 * time.Second)) {
		t.Fatalf("expected 200s duration, got %v", second.VoteEnd)
	}
	if !second.TimelockEnd.Equal(second.VoteEnd.Add(30 * time.Second)) {
		t.Fatalf("expected 30s timelock, got %v", second.TimelockEnd)
	}

	err = module.Handler.UpdateVotingParamsHandler(context.Background(), govMultisig, httptransport.UpdateVotingParamsRequest{
		VoteDelaySeconds:    0,
		VoteDurationSeconds: 0,
		TimelockSeconds:     0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidVotingParams) {
		t.Fatalf("expected invalid-params for zero duration, got %v", err)
	}
}
