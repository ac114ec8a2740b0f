package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	application "agora/contexts/protocol-governance/governance-engine/application"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// AdminUseCase governs the two privileged identities: the owner (two-step
// transferable, never renounceable) and the multisig controller (replaceable
// only by the owner), plus the owner-tuned delegator limit.
type AdminUseCase struct {
	Store  ports.GovernanceStore
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Gate   *sync.Mutex
	Logger *slog.Logger
}

// SetMultisig replaces the multisig controller. Owner-only.
func (uc AdminUseCase) SetMultisig(ctx context.Context, caller string, multisig string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireOwner(ctx, uc.Store, caller); err != nil {
		return err
	}
	multisig = strings.TrimSpace(multisig)
	if multisig == "" {
		return domainerrors.ErrInvalidAddress
	}
	policy, err := uc.Store.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	previous := policy.Multisig
	policy.Multisig = multisig
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveAccessPolicy(ctx, policy); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicMultisigTransferred, 0, now, map[string]any{
			"previous_multisig": previous,
			"new_multisig":      multisig,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("multisig controller replaced",
		"event", "governance_multisig_transferred",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"previous_multisig", previous,
		"new_multisig", multisig,
	)
	return nil
}

// TransferOwnership starts the two-step handover by naming a pending owner.
func (uc AdminUseCase) TransferOwnership(ctx context.Context, caller string, newOwner string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireOwner(ctx, uc.Store, caller); err != nil {
		return err
	}
	newOwner = strings.TrimSpace(newOwner)
	if newOwner == "" {
		return domainerrors.ErrInvalidAddress
	}
	policy, err := uc.Store.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	policy.PendingOwner = newOwner
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		return store.SaveAccessPolicy(ctx, policy)
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("ownership transfer initiated",
		"event", "governance_ownership_transfer_initiated",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"pending_owner", newOwner,
	)
	return nil
}

// AcceptOwnership completes the handover; only the pending owner may call.
func (uc AdminUseCase) AcceptOwnership(ctx context.Context, caller string) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	policy, err := uc.Store.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	if policy.PendingOwner == "" || !sameAccount(caller, policy.PendingOwner) {
		return domainerrors.ErrNotPendingOwner
	}
	previous := policy.Owner
	policy.Owner = policy.PendingOwner
	policy.PendingOwner = ""
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveAccessPolicy(ctx, policy); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicOwnershipTransfer, 0, now, map[string]any{
			"previous_owner": previous,
			"new_owner":      policy.Owner,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("ownership transferred",
		"event", "governance_ownership_transferred",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"previous_owner", previous,
		"new_owner", policy.Owner,
	)
	return nil
}

// RenounceOwnership always fails: the engine must never become ownerless.
func (uc AdminUseCase) RenounceOwnership(_ context.Context, _ string) error {
	return domainerrors.ErrRenounceDisabled
}

// SetDelegatorLimit tunes the maximum combined inbound delegators per
// delegatee. Owner-only.
func (uc AdminUseCase) SetDelegatorLimit(ctx context.Context, caller string, limit int) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireOwner(ctx, uc.Store, caller); err != nil {
		return err
	}
	if limit <= 0 {
		return domainerrors.ErrInvalidVotingParams
	}
	config, err := uc.Store.GetVotingConfig(ctx)
	if err != nil {
		return err
	}
	config.MaxDelegators = limit
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveVotingConfig(ctx, config); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicDelegatorLimit, 0, now, map[string]any{
			"max_delegators": limit,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("delegator limit updated",
		"event", "governance_delegator_limit_updated",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"max_delegators", limit,
	)
	return nil
}
