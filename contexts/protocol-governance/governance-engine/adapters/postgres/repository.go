package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	domainerrors "agora/contexts/protocol-governance/governance-engine/domain/errors"
	"agora/contexts/protocol-governance/governance-engine/ports"
	sharedoutbox "agora/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = sharedoutbox.StatusPending
	outboxStatusPublished = sharedoutbox.StatusPublished

	proposalListActive    = "active"
	proposalListCancelled = "cancelled"

	proposalIDCounter = "proposal_id"

	singletonRowID = 1
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WithinTx scopes fn to one database transaction. The scoped repository
// shares the logger but issues every statement on the transaction handle, so
// state writes and outbox rows commit together or not at all.
func (r *Repository) WithinTx(ctx context.Context, fn func(store ports.GovernanceStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

func (r *Repository) NextProposalID(ctx context.Context) (uint64, error) {
	var next uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row counterModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", proposalIDCounter).
			First(&row).
			Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			next = 1
			return tx.Create(&counterModel{Name: proposalIDCounter, Value: 2}).Error
		}
		next = row.Value
		return tx.Model(&counterModel{}).
			Where("name = ?", proposalIDCounter).
			Update("value", row.Value+1).
			Error
	})
	if err != nil {
		return 0, r.logError("governance_repo_next_proposal_id_failed", err)
	}
	return next, nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row, err := proposalModelFromEntity(proposal)
	if err != nil {
		return r.logError("governance_repo_save_proposal_marshal_failed", err,
			"proposal_id", proposal.ProposalID,
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"proposal_type":  row.ProposalType,
			"description":    row.Description,
			"document_ref":   row.DocumentRef,
			"options":        row.Options,
			"minimum_votes":  row.MinimumVotes,
			"status":         row.Status,
			"voting_started": row.VotingStarted,
			"winning_option": row.WinningOption,
			"highest_weight": row.HighestWeight,
			"counted_votes":  row.CountedVotes,
			"extensions":     row.Extensions,
			"data_removed":   row.DataRemoved,
			"vote_start":     row.VoteStart,
			"vote_end":       row.VoteEnd,
			"timelock_end":   row.TimelockEnd,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_proposal_failed", create.Error,
			"proposal_id", proposal.ProposalID,
		)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotExists
		}
		return entities.Proposal{}, r.logError("governance_repo_get_proposal_failed", err,
			"proposal_id", proposalID,
		)
	}
	return row.toEntity()
}

func (r *Repository) ListActiveProposalIDs(ctx context.Context) ([]uint64, error) {
	return r.listProposalIDs(ctx, proposalListActive)
}

func (r *Repository) ListCancelledProposalIDs(ctx context.Context) ([]uint64, error) {
	return r.listProposalIDs(ctx, proposalListCancelled)
}

func (r *Repository) listProposalIDs(ctx context.Context, listName string) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&proposalListModel{}).
		Where("list_name = ?", listName).
		Order("proposal_id ASC").
		Pluck("proposal_id", &ids).
		Error
	if err != nil {
		return nil, r.logError("governance_repo_list_proposal_ids_failed", err, "list_name", listName)
	}
	return ids, nil
}

func (r *Repository) AddActiveProposal(ctx context.Context, proposalID uint64) error {
	return r.addProposalToList(ctx, proposalListActive, proposalID)
}

func (r *Repository) AddCancelledProposal(ctx context.Context, proposalID uint64) error {
	return r.addProposalToList(ctx, proposalListCancelled, proposalID)
}

func (r *Repository) addProposalToList(ctx context.Context, listName string, proposalID uint64) error {
	row := proposalListModel{ListName: listName, ProposalID: proposalID}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_name"}, {Name: "proposal_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_add_proposal_to_list_failed", create.Error,
			"list_name", listName,
			"proposal_id", proposalID,
		)
	}
	return nil
}

func (r *Repository) RemoveActiveProposal(ctx context.Context, proposalID uint64) error {
	err := r.db.WithContext(ctx).
		Where("list_name = ?", proposalListActive).
		Where("proposal_id = ?", proposalID).
		Delete(&proposalListModel{}).
		Error
	if err != nil {
		return r.logError("governance_repo_remove_active_proposal_failed", err,
			"proposal_id", proposalID,
		)
	}
	return nil
}

func (r *Repository) SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	row := voteModelFromEntity(record)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}, {Name: "voter"}},
		DoUpdates: clause.Assignments(map[string]any{
			"option_index": row.OptionIndex,
			"weight":       row.Weight,
			"by_proxy":     row.ByProxy,
			"cast_at":      row.CastAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_vote_failed", create.Error,
			"proposal_id", record.ProposalID,
			"voter", strings.TrimSpace(record.Voter),
		)
	}
	return nil
}

func (r *Repository) GetVoteRecord(ctx context.Context, proposalID uint64, voter string) (entities.VoteRecord, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Where("voter = ?", strings.TrimSpace(voter)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("governance_repo_get_vote_failed", err,
			"proposal_id", proposalID,
			"voter", strings.TrimSpace(voter),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) DeleteVoteRecord(ctx context.Context, proposalID uint64, voter string) error {
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Where("voter = ?", strings.TrimSpace(voter)).
		Delete(&voteModel{}).
		Error
	if err != nil {
		return r.logError("governance_repo_delete_vote_failed", err,
			"proposal_id", proposalID,
			"voter", strings.TrimSpace(voter),
		)
	}
	return nil
}

func (r *Repository) ListVoterProposalIDs(ctx context.Context, voter string) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&voterIndexModel{}).
		Where("voter = ?", strings.TrimSpace(voter)).
		Order("recorded_at ASC, proposal_id ASC").
		Pluck("proposal_id", &ids).
		Error
	if err != nil {
		return nil, r.logError("governance_repo_list_voter_history_failed", err,
			"voter", strings.TrimSpace(voter),
		)
	}
	return ids, nil
}

func (r *Repository) AppendVoterProposalID(ctx context.Context, voter string, proposalID uint64) error {
	row := voterIndexModel{
		Voter:      strings.TrimSpace(voter),
		ProposalID: proposalID,
		RecordedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter"}, {Name: "proposal_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_voter_history_failed", create.Error,
			"voter", row.Voter,
			"proposal_id", proposalID,
		)
	}
	return nil
}

func (r *Repository) RemoveVoterProposalID(ctx context.Context, voter string, proposalID uint64) error {
	err := r.db.WithContext(ctx).
		Where("voter = ?", strings.TrimSpace(voter)).
		Where("proposal_id = ?", proposalID).
		Delete(&voterIndexModel{}).
		Error
	if err != nil {
		return r.logError("governance_repo_remove_voter_history_failed", err,
			"voter", strings.TrimSpace(voter),
			"proposal_id", proposalID,
		)
	}
	return nil
}

func (r *Repository) AddOptionWeight(ctx context.Context, proposalID uint64, option int, weight uint64) error {
	row := tallyModel{ProposalID: proposalID, OptionIndex: option, Weight: weight}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}, {Name: "option_index"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight": gorm.Expr("governance_tallies.weight + EXCLUDED.weight"),
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_add_option_weight_failed", create.Error,
			"proposal_id", proposalID,
			"option_index", option,
		)
	}
	return nil
}

func (r *Repository) GetOptionWeight(ctx context.Context, proposalID uint64, option int) (uint64, error) {
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Where("option_index = ?", option).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("governance_repo_get_option_weight_failed", err,
			"proposal_id", proposalID,
			"option_index", option,
		)
	}
	return row.Weight, nil
}

func (r *Repository) SaveDelegation(ctx context.Context, delegation entities.Delegation) error {
	row := delegationModel{
		Scope:      string(delegation.Scope),
		ProposalID: delegation.ProposalID,
		Delegator:  strings.TrimSpace(delegation.Delegator),
		Delegatee:  strings.TrimSpace(delegation.Delegatee),
		CreatedAt:  delegation.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "proposal_id"}, {Name: "delegator"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_delegation_failed", create.Error,
			"scope", row.Scope,
			"proposal_id", delegation.ProposalID,
			"delegator", row.Delegator,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyDelegated
	}
	return nil
}

func (r *Repository) DeleteDelegation(
	ctx context.Context,
	scope entities.DelegationScope,
	proposalID uint64,
	delegator string,
) error {
	result := r.db.WithContext(ctx).
		Where("scope = ?", string(scope)).
		Where("proposal_id = ?", proposalID).
		Where("delegator = ?", strings.TrimSpace(delegator)).
		Delete(&delegationModel{})
	if result.Error != nil {
		return r.logError("governance_repo_delete_delegation_failed", result.Error,
			"scope", string(scope),
			"proposal_id", proposalID,
			"delegator", strings.TrimSpace(delegator),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNoDelegationToRevoke
	}
	return nil
}

func (r *Repository) GetGlobalDelegation(ctx context.Context, delegator string) (entities.Delegation, bool, error) {
	return r.getDelegation(ctx, entities.DelegationScopeGlobal, 0, delegator)
}

func (r *Repository) GetProposalDelegation(
	ctx context.Context,
	proposalID uint64,
	delegator string,
) (entities.Delegation, bool, error) {
	return r.getDelegation(ctx, entities.DelegationScopeProposal, proposalID, delegator)
}

func (r *Repository) getDelegation(
	ctx context.Context,
	scope entities.DelegationScope,
	proposalID uint64,
	delegator string,
) (entities.Delegation, bool, error) {
	var row delegationModel
	err := r.db.WithContext(ctx).
		Where("scope = ?", string(scope)).
		Where("proposal_id = ?", proposalID).
		Where("delegator = ?", strings.TrimSpace(delegator)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Delegation{}, false, nil
		}
		return entities.Delegation{}, false, r.logError("governance_repo_get_delegation_failed", err,
			"scope", string(scope),
			"proposal_id", proposalID,
			"delegator", strings.TrimSpace(delegator),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListProposalDelegators(ctx context.Context, proposalID uint64, delegatee string) ([]string, error) {
	var delegators []string
	err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("scope = ?", string(entities.DelegationScopeProposal)).
		Where("proposal_id = ?", proposalID).
		Where("delegatee = ?", strings.TrimSpace(delegatee)).
		Order("created_at ASC, delegator ASC").
		Pluck("delegator", &delegators).
		Error
	if err != nil {
		return nil, r.logError("governance_repo_list_proposal_delegators_failed", err,
			"proposal_id", proposalID,
			"delegatee", strings.TrimSpace(delegatee),
		)
	}
	return delegators, nil
}

func (r *Repository) DelegatorCount(ctx context.Context, delegatee string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("delegatee = ?", strings.TrimSpace(delegatee)).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("governance_repo_delegator_count_failed", err,
			"delegatee", strings.TrimSpace(delegatee),
		)
	}
	return int(count), nil
}

func (r *Repository) GetStats(ctx context.Context) (entities.GovernanceStats, error) {
	var row statsModel
	err := r.db.WithContext(ctx).
		Where("id = ?", singletonRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.GovernanceStats{}, nil
		}
		return entities.GovernanceStats{}, r.logError("governance_repo_get_stats_failed", err)
	}
	return entities.GovernanceStats{
		ExecutedProposals:  row.ExecutedProposals,
		SucceededProposals: row.SucceededProposals,
		DefeatedProposals:  row.DefeatedProposals,
	}, nil
}

func (r *Repository) SaveStats(ctx context.Context, stats entities.GovernanceStats) error {
	row := statsModel{
		ID:                 singletonRowID,
		ExecutedProposals:  stats.ExecutedProposals,
		SucceededProposals: stats.SucceededProposals,
		DefeatedProposals:  stats.DefeatedProposals,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"executed_proposals":  row.ExecutedProposals,
			"succeeded_proposals": row.SucceededProposals,
			"defeated_proposals":  row.DefeatedProposals,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_stats_failed", create.Error)
	}
	return nil
}

func (r *Repository) GetVoteStreak(ctx context.Context, voter string) (uint64, error) {
	var row streakModel
	err := r.db.WithContext(ctx).
		Where("voter = ?", strings.TrimSpace(voter)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("governance_repo_get_streak_failed", err, "voter", strings.TrimSpace(voter))
	}
	return row.Streak, nil
}

func (r *Repository) SaveVoteStreak(ctx context.Context, voter string, streak uint64) error {
	row := streakModel{Voter: strings.TrimSpace(voter), Streak: streak}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "voter"}},
		DoUpdates: clause.Assignments(map[string]any{
			"streak": row.Streak,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_streak_failed", create.Error, "voter", row.Voter)
	}
	return nil
}

func (r *Repository) GetVotingConfig(ctx context.Context) (entities.VotingConfig, error) {
	var row configModel
	err := r.db.WithContext(ctx).
		Where("id = ?", singletonRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingConfig{}, nil
		}
		return entities.VotingConfig{}, r.logError("governance_repo_get_voting_config_failed", err)
	}
	return entities.VotingConfig{
		VoteDelay:        time.Duration(row.VoteDelaySeconds) * time.Second,
		VoteDuration:     time.Duration(row.VoteDurationSeconds) * time.Second,
		TimelockDuration: time.Duration(row.TimelockSeconds) * time.Second,
		MaxDelegators:    row.MaxDelegators,
	}, nil
}

func (r *Repository) SaveVotingConfig(ctx context.Context, config entities.VotingConfig) error {
	row := configModel{
		ID:                  singletonRowID,
		VoteDelaySeconds:    int64(config.VoteDelay / time.Second),
		VoteDurationSeconds: int64(config.VoteDuration / time.Second),
		TimelockSeconds:     int64(config.TimelockDuration / time.Second),
		MaxDelegators:       config.MaxDelegators,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"vote_delay_seconds":    row.VoteDelaySeconds,
			"vote_duration_seconds": row.VoteDurationSeconds,
			"timelock_seconds":      row.TimelockSeconds,
			"max_delegators":        row.MaxDelegators,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_voting_config_failed", create.Error)
	}
	return nil
}

func (r *Repository) GetAccessPolicy(ctx context.Context) (entities.AccessPolicy, error) {
	var row policyModel
	err := r.db.WithContext(ctx).
		Where("id = ?", singletonRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AccessPolicy{}, nil
		}
		return entities.AccessPolicy{}, r.logError("governance_repo_get_access_policy_failed", err)
	}
	return entities.AccessPolicy{
		Owner:        row.Owner,
		PendingOwner: row.PendingOwner,
		Multisig:     row.Multisig,
	}, nil
}

func (r *Repository) SaveAccessPolicy(ctx context.Context, policy entities.AccessPolicy) error {
	row := policyModel{
		ID:           singletonRowID,
		Owner:        strings.TrimSpace(policy.Owner),
		PendingOwner: strings.TrimSpace(policy.PendingOwner),
		Multisig:     strings.TrimSpace(policy.Multisig),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"owner":         row.Owner,
			"pending_owner": row.PendingOwner,
			"multisig":      row.Multisig,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_access_policy_failed", create.Error)
	}
	return nil
}

func (r *Repository) WeightOf(ctx context.Context, account string) (uint64, error) {
	var row accountWeightModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		if isUndefinedTable(err) {
			// Weight projection schema is optional in local development;
			// unknown accounts carry zero weight.
			return 0, nil
		}
		return 0, r.logError("governance_repo_weight_of_failed", err,
			"account", strings.TrimSpace(account),
		)
	}
	return row.Weight, nil
}

func (r *Repository) SetAccountWeight(ctx context.Context, account string, weight uint64, updatedAt time.Time) error {
	row := accountWeightModel{
		Account:   strings.TrimSpace(account),
		Weight:    weight,
		UpdatedAt: updatedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight":     row.Weight,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_set_account_weight_failed", create.Error,
			"account", row.Account,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return r.logError("governance_repo_append_outbox_payload_mismatch", errOutboxPayloadMismatch,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return r.logError("governance_repo_mark_outbox_published_missing", errOutboxRowMissing,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return false, nil
		}
		return false, r.logError("governance_repo_reserve_event_failed", create.Error,
			"event_id", row.EventID,
		)
	}
	return create.RowsAffected > 0, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "protocol-governance/governance-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

var (
	errOutboxPayloadMismatch = errors.New("outbox payload differs for existing event id")
	errOutboxRowMissing      = errors.New("outbox row not found")
)

type proposalModel struct {
	ProposalID    uint64    `gorm:"column:proposal_id;primaryKey"`
	ProposalType  string    `gorm:"column:proposal_type"`
	Description   string    `gorm:"column:description"`
	DocumentRef   string    `gorm:"column:document_ref"`
	Options       []byte    `gorm:"column:options"`
	MinimumVotes  uint64    `gorm:"column:minimum_votes"`
	Status        string    `gorm:"column:status"`
	VotingStarted bool      `gorm:"column:voting_started"`
	WinningOption int       `gorm:"column:winning_option"`
	HighestWeight uint64    `gorm:"column:highest_weight"`
	CountedVotes  uint64    `gorm:"column:counted_votes"`
	Extensions    int       `gorm:"column:extensions"`
	DataRemoved   bool      `gorm:"column:data_removed"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	VoteStart     time.Time `gorm:"column:vote_start"`
	VoteEnd       time.Time `gorm:"column:vote_end"`
	TimelockEnd   time.Time `gorm:"column:timelock_end"`
}

func (proposalModel) TableName() string {
	return "governance_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) (proposalModel, error) {
	options, err := json.Marshal(proposal.Options)
	if err != nil {
		return proposalModel{}, err
	}
	return proposalModel{
		ProposalID:    proposal.ProposalID,
		ProposalType:  string(proposal.ProposalType),
		Description:   proposal.Description,
		DocumentRef:   strings.TrimSpace(proposal.DocumentRef),
		Options:       options,
		MinimumVotes:  proposal.MinimumVotes,
		Status:        string(proposal.Status),
		VotingStarted: proposal.VotingStarted,
		WinningOption: proposal.WinningOption,
		HighestWeight: proposal.HighestWeight,
		CountedVotes:  proposal.CountedVotes,
		Extensions:    proposal.Extensions,
		DataRemoved:   proposal.DataRemoved,
		CreatedAt:     proposal.CreatedAt.UTC(),
		VoteStart:     proposal.VoteStart.UTC(),
		VoteEnd:       proposal.VoteEnd.UTC(),
		TimelockEnd:   proposal.TimelockEnd.UTC(),
	}, nil
}

func (m proposalModel) toEntity() (entities.Proposal, error) {
	var options []string
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &options); err != nil {
			return entities.Proposal{}, err
		}
	}
	return entities.Proposal{
		ProposalID:    m.ProposalID,
		ProposalType:  entities.ProposalType(m.ProposalType),
		Description:   m.Description,
		DocumentRef:   m.DocumentRef,
		Options:       options,
		MinimumVotes:  m.MinimumVotes,
		Status:        entities.ProposalStatus(m.Status),
		VotingStarted: m.VotingStarted,
		WinningOption: m.WinningOption,
		HighestWeight: m.HighestWeight,
		CountedVotes:  m.CountedVotes,
		Extensions:    m.Extensions,
		DataRemoved:   m.DataRemoved,
		CreatedAt:     m.CreatedAt.UTC(),
		VoteStart:     m.VoteStart.UTC(),
		VoteEnd:       m.VoteEnd.UTC(),
		TimelockEnd:   m.TimelockEnd.UTC(),
	}, nil
}

type proposalListModel struct {
	ListName   string `gorm:"column:list_name;primaryKey"`
	ProposalID uint64 `gorm:"column:proposal_id;primaryKey"`
}

func (proposalListModel) TableName() string {
	return "governance_proposal_lists"
}

type voteModel struct {
	ProposalID  uint64    `gorm:"column:proposal_id;primaryKey"`
	Voter       string    `gorm:"column:voter;primaryKey"`
	OptionIndex int       `gorm:"column:option_index"`
	Weight      uint64    `gorm:"column:weight"`
	ByProxy     bool      `gorm:"column:by_proxy"`
	CastAt      time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "governance_votes"
}

func voteModelFromEntity(record entities.VoteRecord) voteModel {
	row := voteModel{
		ProposalID:  record.ProposalID,
		Voter:       strings.TrimSpace(record.Voter),
		OptionIndex: record.Option,
		Weight:      record.Weight,
		ByProxy:     record.ByProxy,
		CastAt:      record.CastAt.UTC(),
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	return row
}

func (m voteModel) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		ProposalID: m.ProposalID,
		Voter:      m.Voter,
		Option:     m.OptionIndex,
		Weight:     m.Weight,
		ByProxy:    m.ByProxy,
		CastAt:     m.CastAt.UTC(),
	}
}

type voterIndexModel struct {
	Voter      string    `gorm:"column:voter;primaryKey"`
	ProposalID uint64    `gorm:"column:proposal_id;primaryKey"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (voterIndexModel) TableName() string {
	return "governance_voter_index"
}

type tallyModel struct {
	ProposalID  uint64 `gorm:"column:proposal_id;primaryKey"`
	OptionIndex int    `gorm:"column:option_index;primaryKey"`
	Weight      uint64 `gorm:"column:weight"`
}

func (tallyModel) TableName() string {
	return "governance_tallies"
}

type delegationModel struct {
	Scope      string    `gorm:"column:scope;primaryKey"`
	ProposalID uint64    `gorm:"column:proposal_id;primaryKey"`
	Delegator  string    `gorm:"column:delegator;primaryKey"`
	Delegatee  string    `gorm:"column:delegatee"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (delegationModel) TableName() string {
	return "governance_delegations"
}

func (m delegationModel) toEntity() entities.Delegation {
	return entities.Delegation{
		Scope:      entities.DelegationScope(m.Scope),
		ProposalID: m.ProposalID,
		Delegator:  m.Delegator,
		Delegatee:  m.Delegatee,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type streakModel struct {
	Voter  string `gorm:"column:voter;primaryKey"`
	Streak uint64 `gorm:"column:streak"`
}

func (streakModel) TableName() string {
	return "governance_vote_streaks"
}

type statsModel struct {
	ID                 int    `gorm:"column:id;primaryKey"`
	ExecutedProposals  uint64 `gorm:"column:executed_proposals"`
	SucceededProposals uint64 `gorm:"column:succeeded_proposals"`
	DefeatedProposals  uint64 `gorm:"column:defeated_proposals"`
}

func (statsModel) TableName() string {
	return "governance_stats"
}

type configModel struct {
	ID                  int   `gorm:"column:id;primaryKey"`
	VoteDelaySeconds    int64 `gorm:"column:vote_delay_seconds"`
	VoteDurationSeconds int64 `gorm:"column:vote_duration_seconds"`
	TimelockSeconds     int64 `gorm:"column:timelock_seconds"`
	MaxDelegators       int   `gorm:"column:max_delegators"`
}

func (configModel) TableName() string {
	return "governance_voting_config"
}

type policyModel struct {
	ID           int    `gorm:"column:id;primaryKey"`
	Owner        string `gorm:"column:owner"`
	PendingOwner string `gorm:"column:pending_owner"`
	Multisig     string `gorm:"column:multisig"`
}

func (policyModel) TableName() string {
	return "governance_access_policy"
}

type accountWeightModel struct {
	Account   string    `gorm:"column:account;primaryKey"`
	Weight    uint64    `gorm:"column:weight"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (accountWeightModel) TableName() string {
	return "governance_account_weights"
}

type counterModel struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value uint64 `gorm:"column:value"`
}

func (counterModel) TableName() string {
	return "governance_counters"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "governance_event_dedup"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ ports.GovernanceStore = (*Repository)(nil)
var _ ports.WeightSource = (*Repository)(nil)
var _ ports.WeightProjection = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
