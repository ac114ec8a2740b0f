package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	governanceengine "agora/contexts/protocol-governance/governance-engine"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance governanceengine.Module
}

func New(
	governance governanceengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/governance/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("PUT /v1/governance/proposals/{proposal_id}", s.handleUpdateProposal)
	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/cancel", s.handleCancelProposal)
	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/extend", s.handleExtendVoting)
	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/execute", s.handleExecuteProposal)
	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/remove-data", s.handleRemoveProposalData)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/winner", s.handleWinningOption)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/tallies/{option}", s.handleOptionTally)
	s.mux.HandleFunc("GET /v1/governance/proposals/active", s.handleActiveProposals)
	s.mux.HandleFunc("GET /v1/governance/proposals/cancelled", s.handleCancelledProposals)

	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/votes/{voter}", s.handleVoterChoice)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/votes/{voter}/status", s.handleHasVoted)

	s.mux.HandleFunc("POST /v1/governance/delegations/global", s.handleDelegateGlobally)
	s.mux.HandleFunc("DELETE /v1/governance/delegations/global", s.handleRevokeGlobalDelegation)
	s.mux.HandleFunc("POST /v1/governance/proposals/{proposal_id}/delegations", s.handleDelegateForProposal)
	s.mux.HandleFunc("DELETE /v1/governance/proposals/{proposal_id}/delegations", s.handleRevokeProposalDelegation)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/delegations/{delegatee}", s.handleProposalDelegators)
	s.mux.HandleFunc("GET /v1/governance/proposals/{proposal_id}/delegatee/{voter}", s.handleEffectiveDelegatee)
	s.mux.HandleFunc("GET /v1/governance/delegations/{delegatee}/count", s.handleDelegatorCount)

	s.mux.HandleFunc("GET /v1/governance/stats", s.handleStats)
	s.mux.HandleFunc("GET /v1/governance/voters/{voter}/history", s.handleVoterHistory)
	s.mux.HandleFunc("GET /v1/governance/voters/{voter}/streak", s.handleVoteStreak)
	s.mux.HandleFunc("GET /v1/governance/accounts/{account}/weight", s.handleAccountWeight)

	s.mux.HandleFunc("PUT /v1/governance/config/voting-params", s.handleUpdateVotingParams)
	s.mux.HandleFunc("PUT /v1/governance/config/delegator-limit", s.handleSetDelegatorLimit)
	s.mux.HandleFunc("PUT /v1/governance/admin/multisig", s.handleSetMultisig)
	s.mux.HandleFunc("POST /v1/governance/admin/ownership/transfer", s.handleTransferOwnership)
	s.mux.HandleFunc("POST /v1/governance/admin/ownership/accept", s.handleAcceptOwnership)
	s.mux.HandleFunc("POST /v1/governance/admin/ownership/renounce", s.handleRenounceOwnership)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
