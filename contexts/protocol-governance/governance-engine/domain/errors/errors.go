package errors

import "errors"

// Authorization failures.
var (
	ErrOnlyMultisig     = errors.New("caller is not the multisig controller")
	ErrOnlyOwner        = errors.New("caller is not the owner")
	ErrNotPendingOwner  = errors.New("caller is not the pending owner")
	ErrRenounceDisabled = errors.New("ownership renouncement is permanently disabled")
)

// Existence and shape failures.
var (
	ErrProposalNotExists         = errors.New("proposal does not exist")
	ErrInvalidOption             = errors.New("option index is out of range")
	ErrInvalidAddress            = errors.New("account address is invalid")
	ErrInvalidProposalType       = errors.New("proposal type is invalid")
	ErrAtLeastTwoOptionsRequired = errors.New("at least two options are required")
	ErrOptionsLimitExceeded      = errors.New("options limit exceeded")
	ErrInvalidExtensionTime      = errors.New("extension time must be positive")
	ErrInvalidVotingParams       = errors.New("voting parameters are invalid")
	ErrNoVoteRecorded            = errors.New("account has no recorded vote")
)

// State and timing failures.
var (
	ErrVotingNotActive            = errors.New("voting is not active")
	ErrVotingAlreadyStarted       = errors.New("voting has already started")
	ErrVotingAlreadyEnded         = errors.New("voting has already ended")
	ErrInvalidProposalStatus      = errors.New("proposal status does not permit this operation")
	ErrTimelockNotOver            = errors.New("timelock period is not over")
	ErrExtensionLimitReached      = errors.New("extension limit reached")
	ErrProposalNotSucceeded       = errors.New("proposal did not succeed")
	ErrProposalDataAlreadyRemoved = errors.New("cancelled proposal data already removed")
)

// Delegation integrity failures.
var (
	ErrAlreadyVoted                  = errors.New("account has already voted")
	ErrAlreadyDelegated              = errors.New("account has already delegated in this namespace")
	ErrNoDelegationToRevoke          = errors.New("no delegation to revoke")
	ErrCannotDelegateSelf            = errors.New("cannot delegate to self")
	ErrDelegatorCannotVote           = errors.New("delegators cannot vote directly")
	ErrMaximumDelegatorsLimitReached = errors.New("maximum delegators limit reached")
)
