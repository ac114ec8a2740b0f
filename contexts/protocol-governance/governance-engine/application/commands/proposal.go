package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "agora/contexts/protocol-governance/governance-engine/application"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
)

// CreateProposalCommand is the write-model input for proposal creation.
type CreateProposalCommand struct {
	Caller       string
	ProposalType entities.ProposalType
	Description  string
	DocumentRef  string
	Options      []string
	MinimumVotes uint64
}

// UpdateProposalCommand overwrites type/description/docRef/options in place.
// Timing fields are never reset by an update.
type UpdateProposalCommand struct {
	Caller       string
	ProposalID   uint64
	ProposalType entities.ProposalType
	Description  string
	DocumentRef  string
	Options      []string
}

// ExtendVotingCommand pushes voteEnd and timelockEnd out by AdditionalTime.
type ExtendVotingCommand struct {
	Caller         string
	ProposalID     uint64
	AdditionalTime time.Duration
}

// RemoveCancelledDataCommand is the owner-only per-voter cleanup on a
// cancelled proposal.
type RemoveCancelledDataCommand struct {
	Caller     string
	Voter      string
	ProposalID uint64
}

// UpdateVotingParamsCommand replaces the global timing defaults. Existing
// proposals keep their already-computed timestamps.
type UpdateVotingParamsCommand struct {
	Caller           string
	VoteDelay        time.Duration
	VoteDuration     time.Duration
	TimelockDuration time.Duration
}

// ProposalUseCase owns the proposal registry: creation, pre-vote updates,
// cancellation, voting extension, parameter tuning, and owner cleanup of
// cancelled proposal data. Every mutating method holds the command gate so
// the engine stays a serially-ordered state machine.
type ProposalUseCase struct {
	Store  ports.GovernanceStore
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Gate   *sync.Mutex
	Logger *slog.Logger
}

// CreateProposal assigns the next monotonic id and schedules the voting
// window from the current parameter set: voteStart = now + delay,
// voteEnd = voteStart + duration, timelockEnd = voteEnd + timelock.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	logger := application.ResolveLogger(uc.Logger)
	if err := requireMultisig(ctx, uc.Store, cmd.Caller); err != nil {
		return entities.Proposal{}, err
	}
	proposalType, err := normalizeProposalType(cmd.ProposalType)
	if err != nil {
		return entities.Proposal{}, err
	}
	options, err := normalizeOptions(cmd.Options)
	if err != nil {
		logger.Warn("proposal create validation failed",
			"event", "governance_proposal_create_validation_failed",
			"module", "protocol-governance/governance-engine",
			"layer", "application",
			"option_count", len(cmd.Options),
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	config, err := uc.Store.GetVotingConfig(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposalID, err := uc.Store.NextProposalID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}

	now := resolveNow(uc.Clock)
	voteStart := now.Add(config.VoteDelay)
	voteEnd := voteStart.Add(config.VoteDuration)
	proposal := entities.Proposal{
		ProposalID:   proposalID,
		ProposalType: proposalType,
		Description:  strings.TrimSpace(cmd.Description),
		DocumentRef:  strings.TrimSpace(cmd.DocumentRef),
		Options:      options,
		MinimumVotes: cmd.MinimumVotes,
		Status:       entities.ProposalStatusPending,
		CreatedAt:    now,
		VoteStart:    voteStart,
		VoteEnd:      voteEnd,
		TimelockEnd:  voteEnd.Add(config.TimelockDuration),
	}
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalCreated, proposalID, now, map[string]any{
			"proposal_id":   proposalID,
			"proposal_type": string(proposal.ProposalType),
			"description":   proposal.Description,
			"document_ref":  proposal.DocumentRef,
			"options":       proposal.Options,
			"minimum_votes": proposal.MinimumVotes,
			"vote_start":    proposal.VoteStart.Format(time.RFC3339),
			"vote_end":      proposal.VoteEnd.Format(time.RFC3339),
			"timelock_end":  proposal.TimelockEnd.Format(time.RFC3339),
		})
	})
	if err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", proposalID,
		"proposal_type", string(proposal.ProposalType),
		"option_count", len(options),
		"vote_start", proposal.VoteStart,
		"vote_end", proposal.VoteEnd,
	)
	return proposal, nil
}

// UpdateProposalDetails rewrites the descriptive fields of a pending
// proposal before its voting window opens.
func (uc ProposalUseCase) UpdateProposalDetails(ctx context.Context, cmd UpdateProposalCommand) (entities.Proposal, error) {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireMultisig(ctx, uc.Store, cmd.Caller); err != nil {
		return entities.Proposal{}, err
	}
	proposal, err := uc.Store.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	now := resolveNow(uc.Clock)
	if !now.Before(proposal.VoteStart) {
		return entities.Proposal{}, domainerrors.ErrVotingAlreadyStarted
	}
	if proposal.Status != entities.ProposalStatusPending {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalStatus
	}
	proposalType, err := normalizeProposalType(cmd.ProposalType)
	if err != nil {
		return entities.Proposal{}, err
	}
	options, err := normalizeOptions(cmd.Options)
	if err != nil {
		return entities.Proposal{}, err
	}

	proposal.ProposalType = proposalType
	proposal.Description = strings.TrimSpace(cmd.Description)
	proposal.DocumentRef = strings.TrimSpace(cmd.DocumentRef)
	proposal.Options = options
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalUpdated, proposal.ProposalID, now, map[string]any{
			"proposal_id":   proposal.ProposalID,
			"proposal_type": string(proposal.ProposalType),
			"description":   proposal.Description,
			"document_ref":  proposal.DocumentRef,
			"options":       proposal.Options,
		})
	})
	if err != nil {
		return entities.Proposal{}, err
	}

	application.ResolveLogger(uc.Logger).Info("proposal updated",
		"event", "governance_proposal_updated",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
	)
	return proposal, nil
}

// CancelProposal moves a pending or active proposal into the cancelled index
// before its voting window closes.
func (uc ProposalUseCase) CancelProposal(ctx context.Context, caller string, proposalID uint64) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireMultisig(ctx, uc.Store, caller); err != nil {
		return err
	}
	proposal, err := uc.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	now := resolveNow(uc.Clock)
	if !now.Before(proposal.VoteEnd) {
		return domainerrors.ErrVotingAlreadyEnded
	}
	switch proposal.Status {
	case entities.ProposalStatusCancelled, entities.ProposalStatusDefeated, entities.ProposalStatusSucceeded:
		return domainerrors.ErrInvalidProposalStatus
	}

	proposal.Status = entities.ProposalStatusCancelled
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		if err := store.RemoveActiveProposal(ctx, proposalID); err != nil {
			return err
		}
		if err := store.AddCancelledProposal(ctx, proposalID); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalCancelled, proposalID, now, map[string]any{
			"proposal_id": proposalID,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("proposal cancelled",
		"event", "governance_proposal_cancelled",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", proposalID,
	)
	return nil
}

// ExtendVoting adds AdditionalTime to voteEnd and timelockEnd, up to the
// fixed extension ceiling.
func (uc ProposalUseCase) ExtendVoting(ctx context.Context, cmd ExtendVotingCommand) (entities.Proposal, error) {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireMultisig(ctx, uc.Store, cmd.Caller); err != nil {
		return entities.Proposal{}, err
	}
	if cmd.AdditionalTime <= 0 {
		return entities.Proposal{}, domainerrors.ErrInvalidExtensionTime
	}
	proposal, err := uc.Store.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if proposal.Extensions >= entities.MaxExtensions {
		return entities.Proposal{}, domainerrors.ErrExtensionLimitReached
	}
	now := resolveNow(uc.Clock)
	if !now.Before(proposal.VoteEnd) {
		return entities.Proposal{}, domainerrors.ErrVotingAlreadyEnded
	}
	if proposal.Status != entities.ProposalStatusPending && proposal.Status != entities.ProposalStatusActive {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalStatus
	}

	proposal.VoteEnd = proposal.VoteEnd.Add(cmd.AdditionalTime)
	proposal.TimelockEnd = proposal.TimelockEnd.Add(cmd.AdditionalTime)
	proposal.Extensions++
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalExtended, proposal.ProposalID, now, map[string]any{
			"proposal_id":     proposal.ProposalID,
			"additional_time": cmd.AdditionalTime.String(),
			"vote_end":        proposal.VoteEnd.Format(time.RFC3339),
			"timelock_end":    proposal.TimelockEnd.Format(time.RFC3339),
			"extensions":      proposal.Extensions,
		})
	})
	if err != nil {
		return entities.Proposal{}, err
	}

	application.ResolveLogger(uc.Logger).Info("voting extended",
		"event", "governance_voting_extended",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"extensions", proposal.Extensions,
	)
	return proposal, nil
}

// RemoveCancelledProposalData clears one voter's recorded vote on a
// cancelled proposal. The operation is one-shot per proposal: a second call
// fails with ErrProposalDataAlreadyRemoved rather than silently no-oping.
func (uc ProposalUseCase) RemoveCancelledProposalData(ctx context.Context, cmd RemoveCancelledDataCommand) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireOwner(ctx, uc.Store, cmd.Caller); err != nil {
		return err
	}
	proposal, err := uc.Store.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return err
	}
	if proposal.Status != entities.ProposalStatusCancelled {
		return domainerrors.ErrInvalidProposalStatus
	}
	if proposal.DataRemoved {
		return domainerrors.ErrProposalDataAlreadyRemoved
	}

	voter := strings.TrimSpace(cmd.Voter)
	proposal.DataRemoved = true
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.DeleteVoteRecord(ctx, cmd.ProposalID, voter); err != nil {
			return err
		}
		if err := store.RemoveVoterProposalID(ctx, voter, cmd.ProposalID); err != nil {
			return err
		}
		if err := store.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicProposalDataRemoved, cmd.ProposalID, now, map[string]any{
			"proposal_id": cmd.ProposalID,
			"voter":       voter,
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("cancelled proposal data removed",
		"event", "governance_proposal_data_removed",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"voter", voter,
	)
	return nil
}

// UpdateVotingParams replaces the global defaults used by future proposals.
func (uc ProposalUseCase) UpdateVotingParams(ctx context.Context, cmd UpdateVotingParamsCommand) error {
	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	if err := requireMultisig(ctx, uc.Store, cmd.Caller); err != nil {
		return err
	}
	if cmd.VoteDelay < 0 || cmd.VoteDuration <= 0 || cmd.TimelockDuration < 0 {
		return domainerrors.ErrInvalidVotingParams
	}
	config, err := uc.Store.GetVotingConfig(ctx)
	if err != nil {
		return err
	}
	config.VoteDelay = cmd.VoteDelay
	config.VoteDuration = cmd.VoteDuration
	config.TimelockDuration = cmd.TimelockDuration
	now := resolveNow(uc.Clock)
	err = uc.Store.WithinTx(ctx, func(store ports.GovernanceStore) error {
		if err := store.SaveVotingConfig(ctx, config); err != nil {
			return err
		}
		return appendGovernanceEvent(ctx, txOutbox(store, uc.Outbox), uc.IDGen, TopicVotingParamsUpdated, 0, now, map[string]any{
			"vote_delay":        cmd.VoteDelay.String(),
			"vote_duration":     cmd.VoteDuration.String(),
			"timelock_duration": cmd.TimelockDuration.String(),
		})
	})
	if err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("voting parameters updated",
		"event", "governance_voting_params_updated",
		"module", "protocol-governance/governance-engine",
		"layer", "application",
		"vote_delay", cmd.VoteDelay,
		"vote_duration", cmd.VoteDuration,
		"timelock_duration", cmd.TimelockDuration,
	)
	return nil
}

func normalizeProposalType(value entities.ProposalType) (entities.ProposalType, error) {
	normalized := entities.ProposalType(strings.ToLower(strings.TrimSpace(string(value))))
	switch normalized {
	case "":
		return entities.ProposalTypeStandard, nil
	case entities.ProposalTypeStandard, entities.ProposalTypeTreasury, entities.ProposalTypeProtocol:
		return normalized, nil
	default:
		return "", domainerrors.ErrInvalidProposalType
	}
}

func normalizeOptions(options []string) ([]string, error) {
	trimmed := make([]string, 0, len(options))
	for _, option := range options {
		if label := strings.TrimSpace(option); label != "" {
			trimmed = append(trimmed, label)
		}
	}
	if len(trimmed) < entities.MinOptions {
		return nil, domainerrors.ErrAtLeastTwoOptionsRequired
	}
	if len(trimmed) > entities.MaxOptions {
		return nil, domainerrors.ErrOptionsLimitExceeded
	}
	return trimmed, nil
}
