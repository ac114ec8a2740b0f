package commands

import (
	"context"
	"strings"
	"time"

	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// sameAccount compares two account identifiers after trimming. Account ids
// are opaque case-sensitive strings, matching how every store keys votes,
// delegations, weights, and streaks.
func sameAccount(a string, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

func requireMultisig(ctx context.Context, store ports.GovernanceStore, caller string) error {
	policy, err := store.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	if !sameAccount(caller, policy.Multisig) {
		return domainerrors.ErrOnlyMultisig
	}
	return nil
}

func requireOwner(ctx context.Context, store ports.GovernanceStore, caller string) error {
	policy, err := store.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	if !sameAccount(caller, policy.Owner) {
		return domainerrors.ErrOnlyOwner
	}
	return nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
