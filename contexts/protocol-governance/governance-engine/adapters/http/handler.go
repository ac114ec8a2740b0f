package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"agora/contexts/protocol-governance/governance-engine/application/commands"
	"agora/contexts/protocol-governance/governance-engine/application/queries"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	httptransport "agora/contexts/protocol-governance/governance-engine/transport/http"
)

// Handler is the transport-facing facade over the governance use cases. The
// caller identity arrives already authenticated from the HTTP layer.
type Handler struct {
	Proposals   commands.ProposalUseCase
	Votes       commands.VoteUseCase
	Delegations commands.DelegationUseCase
	Lifecycle   commands.LifecycleUseCase
	Admin       commands.AdminUseCase
	Queries     queries.GovernanceQueries
	Logger      *slog.Logger
}

func (h Handler) CreateProposalHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		Caller:       caller,
		ProposalType: entities.ProposalType(req.ProposalType),
		Description:  req.Description,
		DocumentRef:  req.DocumentRef,
		Options:      req.Options,
		MinimumVotes: req.MinimumVotes,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) UpdateProposalHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req httptransport.UpdateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.UpdateProposalDetails(ctx, commands.UpdateProposalCommand{
		Caller:       caller,
		ProposalID:   proposalID,
		ProposalType: entities.ProposalType(req.ProposalType),
		Description:  req.Description,
		DocumentRef:  req.DocumentRef,
		Options:      req.Options,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) CancelProposalHandler(ctx context.Context, caller string, proposalID uint64) error {
	return h.Proposals.CancelProposal(ctx, caller, proposalID)
}

func (h Handler) ExtendVotingHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req httptransport.ExtendVotingRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.ExtendVoting(ctx, commands.ExtendVotingCommand{
		Caller:         caller,
		ProposalID:     proposalID,
		AdditionalTime: time.Duration(req.AdditionalSeconds) * time.Second,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) RemoveProposalDataHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req httptransport.RemoveProposalDataRequest,
) error {
	return h.Proposals.RemoveCancelledProposalData(ctx, commands.RemoveCancelledDataCommand{
		Caller:     caller,
		Voter:      req.Voter,
		ProposalID: proposalID,
	})
}

func (h Handler) UpdateVotingParamsHandler(
	ctx context.Context,
	caller string,
	req httptransport.UpdateVotingParamsRequest,
) error {
	return h.Proposals.UpdateVotingParams(ctx, commands.UpdateVotingParamsCommand{
		Caller:           caller,
		VoteDelay:        time.Duration(req.VoteDelaySeconds) * time.Second,
		VoteDuration:     time.Duration(req.VoteDurationSeconds) * time.Second,
		TimelockDuration: time.Duration(req.TimelockSeconds) * time.Second,
	})
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		Caller:     caller,
		ProposalID: proposalID,
		Option:     req.Option,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ProposalID:         result.Proposal.ProposalID,
		Option:             result.Option,
		Status:             string(result.Proposal.Status),
		VoterWeight:        result.VoterWeight,
		TotalWeight:        result.TotalWeight,
		CountedVotes:       result.Proposal.CountedVotes,
		ResolvedDelegators: result.ResolvedDelegators,
	}, nil
}

func (h Handler) ExecuteProposalHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
) (httptransport.ExecuteProposalResponse, error) {
	result, err := h.Lifecycle.ExecuteProposal(ctx, caller, proposalID)
	if err != nil {
		return httptransport.ExecuteProposalResponse{}, err
	}
	return httptransport.ExecuteProposalResponse{
		ProposalID:    proposalID,
		Status:        string(result.Status),
		WinningOption: result.WinningOption,
		HighestWeight: result.HighestWeight,
		CountedVotes:  result.CountedVotes,
	}, nil
}

func (h Handler) DelegateGloballyHandler(ctx context.Context, caller string, req httptransport.DelegateRequest) error {
	return h.Delegations.DelegateGlobally(ctx, caller, req.Delegatee)
}

func (h Handler) DelegateForProposalHandler(
	ctx context.Context,
	caller string,
	proposalID uint64,
	req httptransport.DelegateRequest,
) error {
	return h.Delegations.DelegateForProposal(ctx, caller, proposalID, req.Delegatee)
}

func (h Handler) RevokeGlobalDelegationHandler(ctx context.Context, caller string) error {
	return h.Delegations.RevokeGlobalDelegation(ctx, caller)
}

func (h Handler) RevokeProposalDelegationHandler(ctx context.Context, caller string, proposalID uint64) error {
	return h.Delegations.RevokeProposalDelegation(ctx, caller, proposalID)
}

func (h Handler) SetMultisigHandler(ctx context.Context, caller string, req httptransport.SetMultisigRequest) error {
	return h.Admin.SetMultisig(ctx, caller, req.Multisig)
}

func (h Handler) TransferOwnershipHandler(
	ctx context.Context,
	caller string,
	req httptransport.TransferOwnershipRequest,
) error {
	return h.Admin.TransferOwnership(ctx, caller, req.NewOwner)
}

func (h Handler) AcceptOwnershipHandler(ctx context.Context, caller string) error {
	return h.Admin.AcceptOwnership(ctx, caller)
}

func (h Handler) RenounceOwnershipHandler(ctx context.Context, caller string) error {
	return h.Admin.RenounceOwnership(ctx, caller)
}

func (h Handler) SetDelegatorLimitHandler(
	ctx context.Context,
	caller string,
	req httptransport.SetDelegatorLimitRequest,
) error {
	return h.Admin.SetDelegatorLimit(ctx, caller, req.Limit)
}

func (h Handler) ProposalHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Queries.Proposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) ActiveProposalsHandler(ctx context.Context) (httptransport.ProposalIDsResponse, error) {
	ids, err := h.Queries.ActiveProposalIDs(ctx)
	if err != nil {
		return httptransport.ProposalIDsResponse{}, err
	}
	return httptransport.ProposalIDsResponse{Items: ids}, nil
}

func (h Handler) CancelledProposalsHandler(ctx context.Context) (httptransport.ProposalIDsResponse, error) {
	ids, err := h.Queries.CancelledProposalIDs(ctx)
	if err != nil {
		return httptransport.ProposalIDsResponse{}, err
	}
	return httptransport.ProposalIDsResponse{Items: ids}, nil
}

func (h Handler) VoterChoiceHandler(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (httptransport.VoteRecordResponse, error) {
	record, err := h.Queries.VoterChoice(ctx, proposalID, voter)
	if err != nil {
		return httptransport.VoteRecordResponse{}, err
	}
	return httptransport.VoteRecordResponse{
		ProposalID: record.ProposalID,
		Voter:      record.Voter,
		Option:     record.Option,
		Weight:     record.Weight,
		ByProxy:    record.ByProxy,
		CastAt:     record.CastAt,
	}, nil
}

func (h Handler) HasVotedHandler(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (httptransport.HasVotedResponse, error) {
	voted, err := h.Queries.HasVoted(ctx, proposalID, voter)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{
		ProposalID: proposalID,
		Voter:      voter,
		HasVoted:   voted,
	}, nil
}

func (h Handler) OptionTallyHandler(
	ctx context.Context,
	proposalID uint64,
	option int,
) (httptransport.OptionTallyResponse, error) {
	weight, err := h.Queries.OptionTally(ctx, proposalID, option)
	if err != nil {
		return httptransport.OptionTallyResponse{}, err
	}
	return httptransport.OptionTallyResponse{
		ProposalID: proposalID,
		Option:     option,
		Weight:     weight,
	}, nil
}

func (h Handler) WinningOptionHandler(ctx context.Context, proposalID uint64) (httptransport.WinningOptionResponse, error) {
	result, err := h.Queries.WinningOption(ctx, proposalID)
	if err != nil {
		return httptransport.WinningOptionResponse{}, err
	}
	return httptransport.WinningOptionResponse{
		ProposalID: proposalID,
		Option:     result.Option,
		Label:      result.Label,
		Weight:     result.Weight,
	}, nil
}

func (h Handler) StatsHandler(ctx context.Context) (httptransport.StatsResponse, error) {
	stats, err := h.Queries.Stats(ctx)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	return httptransport.StatsResponse{
		ExecutedProposals:  stats.ExecutedProposals,
		SucceededProposals: stats.SucceededProposals,
		DefeatedProposals:  stats.DefeatedProposals,
	}, nil
}

func (h Handler) DelegatorCountHandler(ctx context.Context, delegatee string) (httptransport.DelegatorCountResponse, error) {
	count, err := h.Queries.DelegatorCount(ctx, delegatee)
	if err != nil {
		return httptransport.DelegatorCountResponse{}, err
	}
	return httptransport.DelegatorCountResponse{
		Delegatee: delegatee,
		Count:     count,
	}, nil
}

func (h Handler) ProposalDelegatorsHandler(
	ctx context.Context,
	proposalID uint64,
	delegatee string,
) (httptransport.DelegatorsResponse, error) {
	delegators, err := h.Queries.ProposalDelegators(ctx, proposalID, delegatee)
	if err != nil {
		return httptransport.DelegatorsResponse{}, err
	}
	return httptransport.DelegatorsResponse{Items: delegators}, nil
}

func (h Handler) EffectiveDelegateeHandler(
	ctx context.Context,
	proposalID uint64,
	voter string,
) (httptransport.EffectiveDelegateeResponse, error) {
	delegatee, err := h.Queries.EffectiveDelegatee(ctx, proposalID, voter)
	if err != nil {
		return httptransport.EffectiveDelegateeResponse{}, err
	}
	return httptransport.EffectiveDelegateeResponse{
		ProposalID: proposalID,
		Voter:      voter,
		Delegatee:  delegatee,
	}, nil
}

func (h Handler) VoterHistoryHandler(ctx context.Context, voter string) (httptransport.VoterHistoryResponse, error) {
	ids, err := h.Queries.VoterHistory(ctx, voter)
	if err != nil {
		return httptransport.VoterHistoryResponse{}, err
	}
	return httptransport.VoterHistoryResponse{
		Voter:       voter,
		ProposalIDs: ids,
	}, nil
}

func (h Handler) VoteStreakHandler(ctx context.Context, voter string) (httptransport.VoteStreakResponse, error) {
	streak, err := h.Queries.VoteStreak(ctx, voter)
	if err != nil {
		return httptransport.VoteStreakResponse{}, err
	}
	return httptransport.VoteStreakResponse{
		Voter:  voter,
		Streak: streak,
	}, nil
}

func (h Handler) AccountWeightHandler(ctx context.Context, account string) (httptransport.AccountWeightResponse, error) {
	weight, err := h.Queries.AccountWeight(ctx, account)
	if err != nil {
		return httptransport.AccountWeightResponse{}, err
	}
	return httptransport.AccountWeightResponse{
		Account: account,
		Weight:  weight,
	}, nil
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ProposalID:    proposal.ProposalID,
		ProposalType:  string(proposal.ProposalType),
		Description:   proposal.Description,
		DocumentRef:   proposal.DocumentRef,
		Options:       proposal.Options,
		MinimumVotes:  proposal.MinimumVotes,
		Status:        string(proposal.Status),
		VotingStarted: proposal.VotingStarted,
		WinningOption: proposal.WinningOption,
		HighestWeight: proposal.HighestWeight,
		CountedVotes:  proposal.CountedVotes,
		Extensions:    proposal.Extensions,
		DataRemoved:   proposal.DataRemoved,
		CreatedAt:     proposal.CreatedAt,
		VoteStart:     proposal.VoteStart,
		VoteEnd:       proposal.VoteEnd,
		TimelockEnd:   proposal.TimelockEnd,
	}
}
