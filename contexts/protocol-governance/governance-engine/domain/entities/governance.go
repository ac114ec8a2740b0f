package entities

import "time"

type ProposalType string

const (
	ProposalTypeStandard ProposalType = "standard"
	ProposalTypeTreasury ProposalType = "treasury"
	ProposalTypeProtocol ProposalType = "protocol"
)

type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusActive    ProposalStatus = "active"
	ProposalStatusSucceeded ProposalStatus = "succeeded"
	ProposalStatusDefeated  ProposalStatus = "defeated"
	ProposalStatusTie       ProposalStatus = "tie"
	ProposalStatusCancelled ProposalStatus = "cancelled"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalStatusSucceeded, ProposalStatusDefeated, ProposalStatusTie, ProposalStatusCancelled:
		return true
	}
	return false
}

const (
	// MinOptions and MaxOptions bound the option list of every proposal.
	MinOptions = 2
	MaxOptions = 4
	// MaxExtensions bounds how many times a voting window may be extended.
	MaxExtensions = 3
)

// Proposal is a governance decision unit. IDs are assigned monotonically
// starting at 1; id 0 is reserved and never valid.
type Proposal struct {
	ProposalID    uint64
	ProposalType  ProposalType
	Description   string
	DocumentRef   string
	Options       []string
	MinimumVotes  uint64
	Status        ProposalStatus
	VotingStarted bool
	WinningOption int
	HighestWeight uint64
	CountedVotes  uint64
	Extensions    int
	DataRemoved   bool
	CreatedAt     time.Time
	VoteStart     time.Time
	VoteEnd       time.Time
	TimelockEnd   time.Time
}

// VotingOpenAt reports whether the voting window admits a vote at the given
// instant: voteStart <= now < voteEnd.
func (p Proposal) VotingOpenAt(now time.Time) bool {
	return !now.Before(p.VoteStart) && now.Before(p.VoteEnd)
}

// VoteRecord is the immutable (proposal, account) vote fact. ByProxy marks
// votes applied on behalf of a per-proposal delegator when its delegatee cast.
type VoteRecord struct {
	ProposalID uint64
	Voter      string
	Option     int
	Weight     uint64
	ByProxy    bool
	CastAt     time.Time
}

type DelegationScope string

const (
	DelegationScopeGlobal   DelegationScope = "global"
	DelegationScopeProposal DelegationScope = "proposal"
)

// Delegation is a single outbound edge in one namespace. ProposalID is zero
// for global edges.
type Delegation struct {
	Scope      DelegationScope
	ProposalID uint64
	Delegator  string
	Delegatee  string
	CreatedAt  time.Time
}

// VotingConfig holds the tunable governance parameters. Parameter updates
// apply only to proposals created afterwards.
type VotingConfig struct {
	VoteDelay        time.Duration
	VoteDuration     time.Duration
	TimelockDuration time.Duration
	MaxDelegators    int
}

// AccessPolicy names the two privileged identities. Owner transfer is
// two-step through PendingOwner; renouncement is permanently disabled.
type AccessPolicy struct {
	Owner        string
	PendingOwner string
	Multisig     string
}

// GovernanceStats are the global execution counters.
type GovernanceStats struct {
	ExecutedProposals  uint64
	SucceededProposals uint64
	DefeatedProposals  uint64
}
