package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	application "agora/contexts/protocol-governance/governance-engine/application"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// DelegationUseCase maintains the two delegation namespaces. An account
// holds at most one outbound edge per namespace, never to itself, and a
// delegatee's combined inbound fan-out is bounded by the configured limit.
type DelegationUseCase struct {
	Store  ports.GovernanceStore
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Gate   *sync.Mutex
	Logger *slog.Logger
}

// DelegateGlobally records a delegation edge that applies to all proposals.
func (uc DelegationUseCase) DelegateGlobally(ctx context.Context, caller string, delegatee string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	delegatee = strings.TrimSpace(delegatee)
	if err := uc.validateDelegatee(ctx, caller, delegatee); err != nil {
		return err
	}
	if _, found, err := uc.Store.GetGlobalDelegation(ctx, strings.TrimSpace(caller)); err != nil {
		return err
	} else if found {
		return domainerrors.ErrAlreadyDelegated
	}

	now := resolveNow(uc.Clock)
	delegation := entities.Delegation{
		Scope:     entities.DelegationScopeGlobal,
		Delegator: strings.TrimSpace(caller),
		Delegatee: delegatee,
		CreatedAt: now,
	}
	err := uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveDelegation(ctx, delegation); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicDelegationGranted, 0, now, map[string]any{
			"scope":     string(entities.DelegationScopeGlobal),
			"delegator": delegation.Delegator,
			"delegatee": delegation.Delegatee,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("global delegation granted",
		"event", "governance_delegation_granted",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"scope", "global",
		"delegator", delegation.Delegator,
		"delegatee", delegation.Delegatee,
	)
	return nil
}

// DelegateForProposal records a delegation edge scoped to one proposal. The
// delegator must not have voted on that proposal yet.
func (uc DelegationUseCase) DelegateForProposal(ctx context.Context, caller string, proposalID uint64, delegatee string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if _, err := uc.Store.GetProposal(ctx, proposalID); err != nil {
		return err
	}
	delegatee = strings.TrimSpace(delegatee)
	delegator := strings.TrimSpace(caller)
	if delegatee == "" {
		return domainerrors.ErrInvalidAddress
	}
	if sameAccount(delegator, delegatee) {
		return domainerrors.ErrCannotDelegateSelf
	}
	if _, found, err := uc.Store.GetVoteRecord(ctx, proposalID, delegator); err != nil {
		return err
	} else if found {
		return domainerrors.ErrAlreadyVoted
	}
	if err := uc.checkDelegatorLimit(ctx, delegatee); err != nil {
		return err
	}
	if _, found, err := uc.Store.GetProposalDelegation(ctx, proposalID, delegator); err != nil {
		return err
	} else if found {
		return domainerrors.ErrAlreadyDelegated
	}

	now := resolveNow(uc.Clock)
	delegation := entities.Delegation{
		Scope:      entities.DelegationScopeProposal,
		ProposalID: proposalID,
		Delegator:  delegator,
		Delegatee:  delegatee,
		CreatedAt:  now,
	}
	err := uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveDelegation(ctx, delegation); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicDelegationGranted, proposalID, now, map[string]any{
			"scope":       string(entities.DelegationScopeProposal),
			"proposal_id": proposalID,
			"delegator":   delegation.Delegator,
			"delegatee":   delegation.Delegatee,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("proposal delegation granted",
		"event", "governance_delegation_granted",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"scope", "proposal",
		"proposal_id", proposalID,
		"delegator", delegation.Delegator,
		"delegatee", delegation.Delegatee,
	)
	return nil
}

// RevokeGlobalDelegation removes the caller's global edge.
func (uc DelegationUseCase) RevokeGlobalDelegation(ctx context.Context, caller string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	delegator := strings.TrimSpace(caller)
	delegation, found, err := uc.Store.GetGlobalDelegation(ctx, delegator)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNoDelegationToRevoke
	}
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.DeleteDelegation(ctx, entities.DelegationScopeGlobal, 0, delegator); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicDelegationRevoked, 0, now, map[string]any{
			"scope":     string(entities.DelegationScopeGlobal),
			"delegator": delegator,
			"delegatee": delegation.Delegatee,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("global delegation revoked",
		"event", "governance_delegation_revoked",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"scope", "global",
		"delegator", delegator,
		"delegatee", delegation.Delegatee,
	)
	return nil
}

// RevokeProposalDelegation removes the caller's edge for one proposal.
func (uc DelegationUseCase) RevokeProposalDelegation(ctx context.Context, caller string, proposalID uint64) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	delegator := strings.TrimSpace(caller)
	delegation, found, err := uc.Store.GetProposalDelegation(ctx, proposalID, delegator)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrNoDelegationToRevoke
	}
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.DeleteDelegation(ctx, entities.DelegationScopeProposal, proposalID, delegator); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicDelegationRevoked, proposalID, now, map[string]any{
			"scope":       string(entities.DelegationScopeProposal),
			"proposal_id": proposalID,
			"delegator":   delegator,
			"delegatee":   delegation.Delegatee,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("proposal delegation revoked",
		"event", "governance_delegation_revoked",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"scope", "proposal",
		"proposal_id", proposalID,
		"delegator", delegator,
		"delegatee", delegation.Delegatee,
	)
	return nil
}

func (uc DelegationUseCase) validateDelegatee(ctx context.Context, caller string, delegatee string) error {
	if delegatee == "" {
		return domainerrors.ErrInvalidAddress
	}
	if sameAccount(caller, delegatee) {
		return domainerrors.ErrCannotDelegateSelf
	}
	return uc.checkDelegatorLimit(ctx, delegatee)
}

// checkDelegatorLimit reads the combined inbound count before the new edge
// is applied, so a delegatee can reach limit+1 delegators before further
// attempts are rejected.
func (uc DelegationUseCase) checkDelegatorLimit(ctx context.Context, delegatee string) error {
	config, err := uc.Store.GetVotingConfig(ctx)
	if err != nil {
		return err
	}
	count, err := uc.Store.DelegatorCount(ctx, delegatee)
	if err != nil {
		return err
	}
	if count > config.MaxDelegators {
		return domainerrors.ErrMaximumDelegatorsLimitReached
	}
	return nil
}
