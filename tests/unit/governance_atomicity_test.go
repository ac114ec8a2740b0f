package unit

import (
	"context"
	"testing"
	"time"

	governanceengine "agora/contexts/protocol-governance/governance-engine"
	"agora/contexts/protocol-governance/governance-engine/adapters/memory"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	"agora/contexts/protocol-governance/governance-engine/ports"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

// txRecordingStore counts transaction scopes and the outbox appends routed
// through them.
type txRecordingStore struct {
	*memory.Store
	txCalls   int
	txAppends int
}

type txScope struct {
	*txRecordingStore
}

func (s *txRecordingStore) WithinTx(_ context.Context, fn func(ports.GovernanceStore) error) error {
	s.txCalls++
	return fn(txScope{s})
}

func (s txScope) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	s.txRecordingStore.txAppends++
	return s.Store.AppendOutbox(ctx, event)
}

// countingOutbox stands in for an outbox writer outside the transaction. A
// correctly wired command never reaches it.
type countingOutbox struct {
	appends int
}

func (o *countingOutbox) AppendOutbox(context.Context, ports.EventEnvelope) error {
	o.appends++
	return nil
}

func TestMutatingCommandsRunInsideStoreTransaction(t *testing.T) {
	store := memory.NewStore(
		entities.VotingConfig{
			VoteDuration:  100 * time.Second,
			MaxDelegators: 100,
		},
		entities.AccessPolicy{
			Owner:    govOwner,
			Multisig: govMultisig,
		},
	)
	store.SetNow(govEpoch)
	store.SetWeight("voter-1", 5)

	rec := &txRecordingStore{Store: store}
	fallback := &countingOutbox{}
	module := governanceengine.NewModule(governanceengine.Dependencies{
		Store:   rec,
		Weights: store,
		Outbox:  fallback,
		Clock:   store,
		IDGen:   store,
	})

	proposal, err := module.Handler.CreateProposalHandler(context.Background(), govMultisig, httptransport.CreateProposalRequest{
		Description:  "atomic",
		Options:      []string{"approve", "reject"},
		MinimumVotes: 1,
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	if rec.txCalls != 1 || rec.txAppends != 1 {
		t.Fatalf("expected create writes in one transaction scope, got calls=%d appends=%d", rec.txCalls, rec.txAppends)
	}

	if _, err := module.Handler.CastVoteHandler(context.Background(), "voter-1", proposal.ProposalID, httptransport.CastVoteRequest{Option: 0}); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if rec.txCalls != 2 || rec.txAppends != 2 {
		t.Fatalf("expected cast writes in one transaction scope, got calls=%d appends=%d", rec.txCalls, rec.txAppends)
	}

	if err := module.Handler.DelegateGloballyHandler(context.Background(), "account-1", httptransport.DelegateRequest{Delegatee: "account-2"}); err != nil {
		t.Fatalf("delegation failed: %v", err)
	}
	if rec.txCalls != 3 || rec.txAppends != 3 {
		t.Fatalf("expected delegation writes in one transaction scope, got calls=%d appends=%d", rec.txCalls, rec.txAppends)
	}

	store.Advance(100 * time.Second)
	if _, err := module.Handler.ExecuteProposalHandler(context.Background(), govMultisig, proposal.ProposalID); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if rec.txCalls != 4 || rec.txAppends != 4 {
		t.Fatalf("expected execution writes in one transaction scope, got calls=%d appends=%d", rec.txCalls, rec.txAppends)
	}

	// Every notification went through the transaction-scoped writer.
	if fallback.appends != 0 {
		t.Fatalf("expected no outbox append outside the transaction, got %d", fallback.appends)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 100)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != rec.txAppends {
		t.Fatalf("expected %d persisted outbox rows, got %d", rec.txAppends, len(pending))
	}
}
