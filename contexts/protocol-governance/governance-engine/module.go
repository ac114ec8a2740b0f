package governanceengine

import (
	"log/slog"
	"sync"
	"time"

	httpadapter "agora/contexts/protocol-governance/governance-engine/adapters/http"
	"agora/contexts/protocol-governance/governance-engine/adapters/memory"
	"agora/contexts/protocol-governance/governance-engine/application/commands"
	"agora/contexts/protocol-governance/governance-engine/application/queries"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Store   ports.GovernanceStore
	Weights ports.WeightSource
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// NewModule wires the governance use cases around a single command gate so
// every mutating operation observes fully-applied predecessors.
func NewModule(deps Dependencies) Module {
	gate := &sync.Mutex{}
	proposalUseCase := commands.ProposalUseCase{
		Store:  deps.Store,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Gate:   gate,
		Logger: deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Store:   deps.Store,
		Weights: deps.Weights,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Gate:    gate,
		Logger:  deps.Logger,
	}
	delegationUseCase := commands.DelegationUseCase{
		Store:  deps.Store,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Gate:   gate,
		Logger: deps.Logger,
	}
	lifecycleUseCase := commands.LifecycleUseCase{
		Store:  deps.Store,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Gate:   gate,
		Logger: deps.Logger,
	}
	adminUseCase := commands.AdminUseCase{
		Store:  deps.Store,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Gate:   gate,
		Logger: deps.Logger,
	}
	governanceQueries := queries.GovernanceQueries{
		Store:   deps.Store,
		Weights: deps.Weights,
		Clock:   deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals:   proposalUseCase,
			Votes:       voteUseCase,
			Delegations: delegationUseCase,
			Lifecycle:   lifecycleUseCase,
			Admin:       adminUseCase,
			Queries:     governanceQueries,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule builds a module over the in-memory store with default
// voting parameters. The store doubles as weight source, clock, id generator,
// and outbox so tests and local runs need no infrastructure.
func NewInMemoryModule(owner string, multisig string, logger *slog.Logger) Module {
	store := memory.NewStore(
		entities.VotingConfig{
			VoteDelay:        time.Hour,
			VoteDuration:     72 * time.Hour,
			TimelockDuration: 24 * time.Hour,
			MaxDelegators:    100,
		},
		entities.AccessPolicy{
			Owner:    owner,
			Multisig: multisig,
		},
	)
	module := NewModule(Dependencies{
		Store:   store,
		Weights: store,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
