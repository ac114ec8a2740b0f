package unit

import (
	"context"
	"errors"
	"strings"
	"testing"

	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

func TestDelegateValidation(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	err := module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "account-1"})
	if !errors.Is(err, domainerrors.ErrCannotDelegateSelf) {
		t.Fatalf("expected self-delegation error, got %v", err)
	}

	err = module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{})
	if !errors.Is(err, domainerrors.ErrInvalidAddress) {
		t.Fatalf("expected invalid-address for empty delegatee, got %v", err)
	}

	if err := module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "account-2"}); err != nil {
		t.Fatalf("global delegation failed: %v", err)
	}
	err = module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "account-3"})
	if !errors.Is(err, domainerrors.ErrAlreadyDelegated) {
		t.Fatalf("expected already-delegated on second global edge, got %v", err)
	}

	err = module.Handler.DelegateForProposalHandler(context.Background(), "account-1", 99, httptransport.DelegateRequest{Delegatee: "account-2"})
	if !errors.Is(err, domainerrors.ErrProposalNotExists) {
		t.Fatalf("expected proposal-not-exists, got %v", err)
	}

	if err := module.Handler.DelegateForProposalHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "account-2"}); err != nil {
		t.Fatalf("proposal delegation alongside global failed: %v", err)
	}
	err = module.Handler.DelegateForProposalHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "account-3"})
	if !errors.Is(err, domainerrors.ErrAlreadyDelegated) {
		t.Fatalf("expected already-delegated on second proposal edge, got %v", err)
	}
}

func TestRevokeDelegation(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("account-1", 2)
	proposal := createProposal(t, module, 1)

	err := module.Handler.RevokeGlobalDelegationHandler(context.Background(), "account-1")
	if !errors.Is(err, domainerrors.ErrNoDelegationToRevoke) {
		t.Fatalf("expected no-delegation-to-revoke, got %v", err)
	}

	if err := module.Handler.DelegateForProposalHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "account-2"}); err != nil {
		t.Fatalf("proposal delegation failed: %v", err)
	}
	if err := module.Handler.RevokeProposalDelegationHandler(context.Background(), "account-1", proposal.ProposalID); err != nil {
		t.Fatalf("revoke proposal delegation failed: %v", err)
	}
	err = module.Handler.RevokeProposalDelegationHandler(context.Background(), "account-1", proposal.ProposalID)
	if !errors.Is(err, domainerrors.ErrNoDelegationToRevoke) {
		t.Fatalf("expected no-delegation-to-revoke on double revoke, got %v", err)
	}

	// A revoked delegator regains the right to vote directly.
	if _, err := module.Handler.CastVoteHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("vote after revocation failed: %v", err)
	}
}

func TestDelegateAfterVoteRejected(t *testing.T) {
	module := newGovernanceModule(t)
	module.Store.SetWeight("account-1", 2)
	proposal := createProposal(t, module, 1)

	if _, err := module.Handler.CastVoteHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	err := module.Handler.DelegateForProposalHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "account-2"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already-voted on post-vote delegation, got %v", err)
	}
}

func TestDelegatorLimitBoundary(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	if err := module.Handler.SetDelegatorLimitHandler(context.Background(), govOwner, httptransport.SetDelegatorLimitRequest{Limit: 2}); err != nil {
		t.Fatalf("set delegator limit failed: %v", err)
	}

	// The count is checked before the new edge lands, so the delegatee can
	// accumulate limit+1 inbound edges before rejections begin.
	if err := module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "hub-1"}); err != nil {
		t.Fatalf("delegation 1 failed: %v", err)
	}
	if err := module.Handler.DelegateGloballyHandler(context.Background(), "account-2", httptransport.DelegateRequest{Delegatee: "hub-1"}); err != nil {
		t.Fatalf("delegation 2 failed: %v", err)
	}
	if err := module.Handler.DelegateForProposalHandler(context.Background(), "account-3", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "hub-1"}); err != nil {
		t.Fatalf("delegation 3 failed: %v", err)
	}

	err := module.Handler.DelegateGloballyHandler(context.Background(), "account-4", httptransport.DelegateRequest{Delegatee: "hub-1"})
	if !errors.Is(err, domainerrors.ErrMaximumDelegatorsLimitReached) {
		t.Fatalf("expected delegator-limit error, got %v", err)
	}

	count, err := module.Handler.DelegatorCountHandler(context.Background(), "hub-1")
	if err != nil {
		t.Fatalf("delegator count failed: %v", err)
	}
	if count.Count != 3 {
		t.Fatalf("expected combined count 3, got %d", count.Count)
	}
}

func TestEffectiveDelegateePrecedence(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	if err := module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "global-hub"}); err != nil {
		t.Fatalf("global delegation failed: %v", err)
	}
	if err := module.Handler.DelegateForProposalHandler(context.Background(), "account-1", proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "proposal-hub"}); err != nil {
		t.Fatalf("proposal delegation failed: %v", err)
	}

	effective, err := module.Handler.EffectiveDelegateeHandler(context.Background(), proposal.ProposalID, "account-1")
	if err != nil {
		t.Fatalf("effective delegatee failed: %v", err)
	}
	if effective.Delegatee != "proposal-hub" {
		t.Fatalf("expected proposal scope to win, got %q", effective.Delegatee)
	}

	if err := module.Handler.RevokeProposalDelegationHandler(context.Background(), "account-1", proposal.ProposalID); err != nil {
		t.Fatalf("revoke proposal delegation failed: %v", err)
	}
	effective, err = module.Handler.EffectiveDelegateeHandler(context.Background(), proposal.ProposalID, "account-1")
	if err != nil {
		t.Fatalf("effective delegatee failed: %v", err)
	}
	if effective.Delegatee != "global-hub" {
		t.Fatalf("expected global fallback, got %q", effective.Delegatee)
	}

	if err := module.Handler.RevokeGlobalDelegationHandler(context.Background(), "account-1"); err != nil {
		t.Fatalf("revoke global delegation failed: %v", err)
	}
	effective, err = module.Handler.EffectiveDelegateeHandler(context.Background(), proposal.ProposalID, "account-1")
	if err != nil {
		t.Fatalf("effective delegatee failed: %v", err)
	}
	if effective.Delegatee != "" {
		t.Fatalf("expected no delegatee after both revocations, got %q", effective.Delegatee)
	}
}

func TestAccountIdentifiersCaseSensitive(t *testing.T) {
	module := newGovernanceModule(t)

	// Distinct casings are distinct accounts, here as everywhere the store
	// keys by account id.
	if err := module.Handler.DelegateGloballyHandler(context.Background(), "Bob", httptransport.DelegateRequest{Delegatee: "bob"}); err != nil {
		t.Fatalf("delegation between distinct casings failed: %v", err)
	}
	err := module.Handler.DelegateGloballyHandler(context.Background(), "bob", httptransport.DelegateRequest{Delegatee: "bob"})
	if !errors.Is(err, domainerrors.ErrCannotDelegateSelf) {
		t.Fatalf("expected exact-match self-delegation error, got %v", err)
	}

	// Role gates compare exactly too.
	err = module.Handler.SetDelegatorLimitHandler(context.Background(), strings.ToUpper(govOwner), httptransport.SetDelegatorLimitRequest{Limit: 5})
	if !errors.Is(err, domainerrors.ErrOnlyOwner) {
		t.Fatalf("expected case-mismatched owner rejected, got %v", err)
	}
	_, err = module.Handler.CreateProposalHandler(context.Background(), strings.ToUpper(govMultisig), httptransport.CreateProposalRequest{
		Options: []string{"a", "b"},
	})
	if !errors.Is(err, domainerrors.ErrOnlyMultisig) {
		t.Fatalf("expected case-mismatched multisig rejected, got %v", err)
	}
}

func TestProposalDelegatorsListing(t *testing.T) {
	module := newGovernanceModule(t)
	proposal := createProposal(t, module, 1)

	for _, delegator := range []string{"account-1", "account-2"} {
		if err := module.Handler.DelegateForProposalHandler(context.Background(), delegator, proposal.ProposalID, httptransport.DelegateRequest{Delegatee: "hub-1"}); err != nil {
			t.Fatalf("delegation for %s failed: %v", delegator, err)
		}
	}

	delegators, err := module.Handler.ProposalDelegatorsHandler(context.Background(), proposal.ProposalID, "hub-1")
	if err != nil {
		t.Fatalf("proposal delegators failed: %v", err)
	}
	if len(delegators.Items) != 2 {
		t.Fatalf("expected 2 delegators, got %v", delegators.Items)
	}
	seen := map[string]bool{}
	for _, d := range delegators.Items {
		seen[d] = true
	}
	if !seen["account-1"] || !seen["account-2"] {
		t.Fatalf("missing expected delegators: %v", delegators.Items)
	}
}
