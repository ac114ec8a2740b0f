package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	governancedomainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	governancehttp "agora/contexts/protocol-governance/governance-engine/transport/http"
)

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{Code: code, Message: message})
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governancedomainerrors.ErrOnlyMultisig):
		writeGovernanceError(w, http.StatusForbidden, "only_multisig", err.Error())
	case errors.Is(err, governancedomainerrors.ErrOnlyOwner):
		writeGovernanceError(w, http.StatusForbidden, "only_owner", err.Error())
	case errors.Is(err, governancedomainerrors.ErrNotPendingOwner):
		writeGovernanceError(w, http.StatusForbidden, "not_pending_owner", err.Error())
	case errors.Is(err, governancedomainerrors.ErrRenounceDisabled):
		writeGovernanceError(w, http.StatusForbidden, "renounce_disabled", err.Error())
	case errors.Is(err, governancedomainerrors.ErrProposalNotExists):
		writeGovernanceError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, governancedomainerrors.ErrNoVoteRecorded):
		writeGovernanceError(w, http.StatusNotFound, "no_vote_recorded", err.Error())
	case errors.Is(err, governancedomainerrors.ErrInvalidOption),
		errors.Is(err, governancedomainerrors.ErrInvalidAddress),
		errors.Is(err, governancedomainerrors.ErrInvalidProposalType),
		errors.Is(err, governancedomainerrors.ErrAtLeastTwoOptionsRequired),
		errors.Is(err, governancedomainerrors.ErrOptionsLimitExceeded),
		errors.Is(err, governancedomainerrors.ErrInvalidExtensionTime),
		errors.Is(err, governancedomainerrors.ErrInvalidVotingParams):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governancedomainerrors.ErrAlreadyVoted):
		writeGovernanceError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, governancedomainerrors.ErrAlreadyDelegated):
		writeGovernanceError(w, http.StatusConflict, "already_delegated", err.Error())
	case errors.Is(err, governancedomainerrors.ErrNoDelegationToRevoke):
		writeGovernanceError(w, http.StatusConflict, "no_delegation_to_revoke", err.Error())
	case errors.Is(err, governancedomainerrors.ErrCannotDelegateSelf):
		writeGovernanceError(w, http.StatusConflict, "cannot_delegate_self", err.Error())
	case errors.Is(err, governancedomainerrors.ErrDelegatorCannotVote):
		writeGovernanceError(w, http.StatusConflict, "delegator_cannot_vote", err.Error())
	case errors.Is(err, governancedomainerrors.ErrMaximumDelegatorsLimitReached):
		writeGovernanceError(w, http.StatusConflict, "delegator_limit_reached", err.Error())
	case errors.Is(err, governancedomainerrors.ErrVotingNotActive):
		writeGovernanceError(w, http.StatusConflict, "voting_not_active", err.Error())
	case errors.Is(err, governancedomainerrors.ErrVotingAlreadyStarted):
		writeGovernanceError(w, http.StatusConflict, "voting_already_started", err.Error())
	case errors.Is(err, governancedomainerrors.ErrVotingAlreadyEnded):
		writeGovernanceError(w, http.StatusConflict, "voting_already_ended", err.Error())
	case errors.Is(err, governancedomainerrors.ErrInvalidProposalStatus):
		writeGovernanceError(w, http.StatusConflict, "invalid_proposal_status", err.Error())
	case errors.Is(err, governancedomainerrors.ErrTimelockNotOver):
		writeGovernanceError(w, http.StatusConflict, "timelock_not_over", err.Error())
	case errors.Is(err, governancedomainerrors.ErrExtensionLimitReached):
		writeGovernanceError(w, http.StatusConflict, "extension_limit_reached", err.Error())
	case errors.Is(err, governancedomainerrors.ErrProposalNotSucceeded):
		writeGovernanceError(w, http.StatusConflict, "proposal_not_succeeded", err.Error())
	case errors.Is(err, governancedomainerrors.ErrProposalDataAlreadyRemoved):
		writeGovernanceError(w, http.StatusConflict, "proposal_data_already_removed", err.Error())
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireGovernanceCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-Caller-Id"))
	if caller == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Id header is required")
		return "", false
	}
	return caller, true
}

func parseGovernanceProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	proposalID, err := strconv.ParseUint(r.PathValue("proposal_id"), 10, 64)
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be an unsigned integer")
		return 0, false
	}
	return proposalID, true
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CreateProposalHandler(r.Context(), caller, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProposalHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	var req governancehttp.UpdateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.UpdateProposalHandler(r.Context(), caller, proposalID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.CancelProposalHandler(r.Context(), caller, proposalID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExtendVoting(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	var req governancehttp.ExtendVotingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.ExtendVotingHandler(r.Context(), caller, proposalID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ExecuteProposalHandler(r.Context(), caller, proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveProposalData(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	var req governancehttp.RemoveProposalDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.RemoveProposalDataHandler(r.Context(), caller, proposalID, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWinningOption(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.WinningOptionHandler(r.Context(), proposalID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOptionTally(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	option, err := strconv.Atoi(r.PathValue("option"))
	if err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_option", "option must be an integer")
		return
	}
	resp, err := s.governance.Handler.OptionTallyHandler(r.Context(), proposalID, option)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ActiveProposalsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelledProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.CancelledProposalsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	var req governancehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.governance.Handler.CastVoteHandler(r.Context(), caller, proposalID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVoterChoice(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.VoterChoiceHandler(r.Context(), proposalID, r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.HasVotedHandler(r.Context(), proposalID, r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegateGlobally(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.DelegateGloballyHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeGlobalDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.RevokeGlobalDelegationHandler(r.Context(), caller); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelegateForProposal(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	var req governancehttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.DelegateForProposalHandler(r.Context(), caller, proposalID, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeProposalDelegation(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.RevokeProposalDelegationHandler(r.Context(), caller, proposalID); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProposalDelegators(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.ProposalDelegatorsHandler(r.Context(), proposalID, r.PathValue("delegatee"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEffectiveDelegatee(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseGovernanceProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.governance.Handler.EffectiveDelegateeHandler(r.Context(), proposalID, r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegatorCount(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.DelegatorCountHandler(r.Context(), r.PathValue("delegatee"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.StatsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.VoterHistoryHandler(r.Context(), r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteStreak(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.VoteStreakHandler(r.Context(), r.PathValue("voter"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccountWeight(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.AccountWeightHandler(r.Context(), r.PathValue("account"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateVotingParams(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.UpdateVotingParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.UpdateVotingParamsHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDelegatorLimit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.SetDelegatorLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.SetDelegatorLimitHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetMultisig(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.SetMultisigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.SetMultisigHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	var req governancehttp.TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.governance.Handler.TransferOwnershipHandler(r.Context(), caller, req); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAcceptOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.AcceptOwnershipHandler(r.Context(), caller); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenounceOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireGovernanceCaller(w, r)
	if !ok {
		return
	}
	if err := s.governance.Handler.RenounceOwnershipHandler(r.Context(), caller); err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
