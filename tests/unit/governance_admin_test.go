package unit

import (
	"context"
	"errors"
	"testing"

	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

func TestOwnershipTwoStepHandover(t *testing.T) {
	module := newGovernanceModule(t)

	err := module.Handler.TransferOwnershipHandler(context.Background(), "stranger-1", httptransport.TransferOwnershipRequest{NewOwner: "owner-2"})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected only-owner on transfer, got %v", err)
	}

	err = module.Handler.AcceptOwnershipHandler(context.Background(), "owner-2")
	if !errors.Is(err, domainerrors.ErrNotPendingOwner) {
		t.Fatalf("expected not-pending-owner before a transfer, got %v", err)
	}

	if err := module.Handler.TransferOwnershipHandler(context.Background(), govOwner, httptransport.TransferOwnershipRequest{NewOwner: "owner-2"}); err != nil {
		t.Fatalf("transfer ownership failed: %v", err)
	}

	err = module.Handler.AcceptOwnershipHandler(context.Background(), "impostor-1")
	if !errors.Is(err, domainerrors.ErrNotPendingOwner) {
		t.Fatalf("expected not-pending-owner for wrong accepter, got %v", err)
	}

	// The current owner keeps privileges until the pending owner accepts.
	if err := module.Handler.SetDelegatorLimitHandler(context.Background(), govOwner, httptransport.SetDelegatorLimitRequest{Limit: 5}); err != nil {
		t.Fatalf("owner action during pending transfer failed: %v", err)
	}

	if err := module.Handler.AcceptOwnershipHandler(context.Background(), "owner-2"); err != nil {
		t.Fatalf("accept ownership failed: %v", err)
	}

	err = module.Handler.SetDelegatorLimitHandler(context.Background(), govOwner, httptransport.SetDelegatorLimitRequest{Limit: 5})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected previous owner to lose privileges, got %v", err)
	}
	if err := module.Handler.SetDelegatorLimitHandler(context.Background(), "owner-2", httptransport.SetDelegatorLimitRequest{Limit: 5}); err != nil {
		t.Fatalf("new owner action failed: %v", err)
	}

	err = module.Handler.AcceptOwnershipHandler(context.Background(), "owner-2")
	if !errors.Is(err, domainerrors.ErrNotPendingOwner) {
		t.Fatalf("expected pending owner cleared after acceptance, got %v", err)
	}
}

func TestRenounceOwnershipAlwaysDisabled(t *testing.T) {
	module := newGovernanceModule(t)

	err := module.Handler.RenounceOwnershipHandler(context.Background(), govOwner)
	if !errors.Is(err, domainerrors.ErrRenounceDisabled) {
		t.Fatalf("expected renounce-disabled for owner, got %v", err)
	}
	err = module.Handler.RenounceOwnershipHandler(context.Background(), "stranger-1")
	if !errors.Is(err, domainerrors.ErrRenounceDisabled) {
		t.Fatalf("expected renounce-disabled for everyone, got %v", err)
	}
}

func TestSetMultisigReplacesController(t *testing.T) {
	module := newGovernanceModule(t)

	err := module.Handler.SetMultisigHandler(context.Background(), govMultisig, httptransport.SetMultisigRequest{Multisig: "multisig-2"})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected only-owner on set-multisig, got %v", err)
	}
	err = module.Handler.SetMultisigHandler(context.Background(), govOwner, httptransport.SetMultisigRequest{})
	if !errors.Is(err, domainerrors.ErrInvalidAddress) {
		t.Fatalf("expected invalid-address for empty multisig, got %v", err)
	}

	if err := module.Handler.SetMultisigHandler(context.Background(), govOwner, httptransport.SetMultisigRequest{Multisig: "multisig-2"}); err != nil {
		t.Fatalf("set multisig failed: %v", err)
	}

	_, err = module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		Options: []string{"a", "b"},
	})
	if !errors.Is(err, domainerrors.ErrOnlyMultisig) {
		t.Fatalf("expected old multisig rejected, got %v", err)
	}
	if _, err := module.Handler.CreateProposalHandler(context.Background(), "multisig-2", httptransport.CreateProposalRequest{
		Options: []string{"a", "b"},
	}); err != nil {
		t.Fatalf("new multisig create failed: %v", err)
	}
}

func TestRemoveCancelledProposalData(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("voter-1", 3)
	proposal := createProposal(t, module, 1)

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	err := module.Handler.RemoveProposalDataHandler(context.Background(), govOwner, proposal.ProposalID, httptransport.RemoveProposalDataRequest{Voter: "voter-1"})
	if !errors.Is(err, domainerrors.ErrInvalidProposalStatus) {
		t.Fatalf("expected invalid-status on live proposal, got %v", err)
	}

	if err := module.Handler.CancelProposalHandler(context.Background(), govMultisig, proposal.ProposalID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	err = module.Handler.RemoveProposalDataHandler(context.Background(), govMultisig, proposal.ProposalID, httptransport.RemoveProposalDataRequest{Voter: "voter-1"})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected only-owner on data removal, got %v", err)
	}

	if err := module.Handler.RemoveProposalDataHandler(context.Background(), govOwner, proposal.ProposalID, httptransport.RemoveProposalDataRequest{Voter: "voter-1"}); err != nil {
		t.Fatalf("data removal failed: %v", err)
	}

	_, err = module.Handler.VoterChoiceHandler(context.Background(), proposal.ProposalID, "voter-1")
	if !errors.Is(err, domainerrors.ErrNoVoteRecorded) {
		t.Fatalf("expected vote record gone, got %v", err)
	}
	history, err := module.Handler.VoterHistoryHandler(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("voter history failed: %v", err)
	}
	if len(history.ProposalIDs) != 0 {
		t.Fatalf("expected history cleared, got %v", history.ProposalIDs)
	}

	err = module.Handler.RemoveProposalDataHandler(context.Background(), govOwner, proposal.ProposalID, httptransport.RemoveProposalDataRequest{Voter: "voter-1"})
	if !errors.Is(err, domainerrors.ErrProposalDataAlreadyRemoved) {
		t.Fatalf("expected one-shot removal, got %v", err)
	}
}

func TestSetDelegatorLimitValidation(t *testing.T) {
	module := newGovernanceModule(t)

	err := module.Handler.SetDelegatorLimitHandler(context.Background(), "stranger-1", httptransport.SetDelegatorLimitRequest{Limit: 10})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected only-owner, got %v", err)
	}
	err = module.Handler.SetDelegatorLimitHandler(context.Background(), govOwner, httptransport.SetDelegatorLimitRequest{})
	if !errors.Is(err, domainerrors.ErrInvalidVotingParams) {
		t.Fatalf("expected invalid-params for zero limit, got %v", err)
	}
	if err := module.Handler.SetDelegatorLimitHandler(context.Background(), govOwner, httptransport.SetDelegatorLimitRequest{Limit: 10}); err != nil {
		t.Fatalf("set delegator limit failed: %v", err)
	}
}
