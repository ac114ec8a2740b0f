package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProposalRequest struct {
	ProposalType string   `json:"proposal_type,omitempty"`
	Description  string   `json:"description"`
	DocumentRef  string   `json:"document_ref,omitempty"`
	Options      []string `json:"options"`
	MinimumVotes uint64   `json:"minimum_votes"`
}

type UpdateProposalRequest struct {
	ProposalType string   `json:"proposal_type,omitempty"`
	Description  string   `json:"description"`
	DocumentRef  string   `json:"document_ref,omitempty"`
	Options      []string `json:"options"`
}

type ProposalResponse struct {
	ProposalID    uint64    `json:"proposal_id"`
	ProposalType  string    `json:"proposal_type"`
	Description   string    `json:"description"`
	DocumentRef   string    `json:"document_ref,omitempty"`
	Options       []string  `json:"options"`
	MinimumVotes  uint64    `json:"minimum_votes"`
	Status        string    `json:"status"`
	VotingStarted bool      `json:"voting_started"`
	WinningOption int       `json:"winning_option"`
	HighestWeight uint64    `json:"highest_weight"`
	CountedVotes  uint64    `json:"counted_votes"`
	Extensions    int       `json:"extensions"`
	DataRemoved   bool      `json:"data_removed"`
	CreatedAt     time.Time `json:"created_at"`
	VoteStart     time.Time `json:"vote_start"`
	VoteEnd       time.Time `json:"vote_end"`
	TimelockEnd   time.Time `json:"timelock_end"`
}

type ExtendVotingRequest struct {
	AdditionalSeconds int64 `json:"additional_seconds"`
}

type RemoveProposalDataRequest struct {
	Voter string `json:"voter"`
}

type UpdateVotingParamsRequest struct {
	VoteDelaySeconds    int64 `json:"vote_delay_seconds"`
	VoteDurationSeconds int64 `json:"vote_duration_seconds"`
	TimelockSeconds     int64 `json:"timelock_seconds"`
}

type CastVoteRequest struct {
	Option int `json:"option"`
}

type CastVoteResponse struct {
	ProposalID         uint64   `json:"proposal_id"`
	Option             int      `json:"option"`
	Status             string   `json:"status"`
	VoterWeight        uint64   `json:"voter_weight"`
	TotalWeight        uint64   `json:"total_weight"`
	CountedVotes       uint64   `json:"counted_votes"`
	ResolvedDelegators []string `json:"resolved_delegators"`
}

type VoteRecordResponse struct {
	ProposalID uint64    `json:"proposal_id"`
	Voter      string    `json:"voter"`
	Option     int       `json:"option"`
	Weight     uint64    `json:"weight"`
	ByProxy    bool      `json:"by_proxy"`
	CastAt     time.Time `json:"cast_at"`
}

type DelegateRequest struct {
	Delegatee string `json:"delegatee"`
}

type ExecuteProposalResponse struct {
	ProposalID    uint64 `json:"proposal_id"`
	Status        string `json:"status"`
	WinningOption int    `json:"winning_option"`
	HighestWeight uint64 `json:"highest_weight"`
	CountedVotes  uint64 `json:"counted_votes"`
}

type WinningOptionResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Option     int    `json:"option"`
	Label      string `json:"label"`
	Weight     uint64 `json:"weight"`
}

type ProposalIDsResponse struct {
	Items []uint64 `json:"items"`
}

type OptionTallyResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Option     int    `json:"option"`
	Weight     uint64 `json:"weight"`
}

type StatsResponse struct {
	ExecutedProposals  uint64 `json:"executed_proposals"`
	SucceededProposals uint64 `json:"succeeded_proposals"`
	DefeatedProposals  uint64 `json:"defeated_proposals"`
}

type DelegatorCountResponse struct {
	Delegatee string `json:"delegatee"`
	Count     int    `json:"count"`
}

type DelegatorsResponse struct {
	Items []string `json:"items"`
}

type VoterHistoryResponse struct {
	Voter       string   `json:"voter"`
	ProposalIDs []uint64 `json:"proposal_ids"`
}

type VoteStreakResponse struct {
	Voter  string `json:"voter"`
	Streak uint64 `json:"streak"`
}

type AccountWeightResponse struct {
	Account string `json:"account"`
	Weight  uint64 `json:"weight"`
}

type EffectiveDelegateeResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Delegatee  string `json:"delegatee,omitempty"`
}

type HasVotedResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	HasVoted   bool   `json:"has_voted"`
}

type SetMultisigRequest struct {
	Multisig string `json:"multisig"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type SetDelegatorLimitRequest struct {
	Limit int `json:"limit"`
}
