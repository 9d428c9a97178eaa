package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

// RunModel is the database DTO with Gorm tags.
type RunModel struct {
	ID              int64   `gorm:"primaryKey;autoIncrement:false"`
	Kind            string  `gorm:"type:varchar(32)"`
	CorrelationID   string  `gorm:"type:varchar(64)"`
	IdempotencyKey  *string `gorm:"type:varchar(255);uniqueIndex"`
	OrganizationID  string  `gorm:"type:varchar(255)"`
	TenantID        int64   `gorm:"index"`
	ApplicationID   int64
	TargetProductID string            `gorm:"type:varchar(255)"`
	TargetPriceID   *string           `gorm:"type:varchar(255)"`
	Classification  string            `gorm:"type:varchar(32)"`
	ChangeType      string            `gorm:"type:varchar(32)"`
	State           string            `gorm:"type:varchar(64)"`
	Status          string            `gorm:"type:varchar(64)"`
	RedirectURL     string            `gorm:"type:text"`
	Message         string            `gorm:"type:text"`
	Warnings        string            `gorm:"type:text"`
	TenantFailure   *workflow.Failure `gorm:"type:jsonb;serializer:json"`
	BillingFailure  *workflow.Failure `gorm:"type:jsonb;serializer:json"`
	TenantOutcome   string            `gorm:"type:varchar(32)"`
	BillingOutcome  string            `gorm:"type:varchar(32)"`
	BillingAttempts int
	Operator        string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RunModel) TableName() string {
	return "runs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, run *workflow.Run) error {
	model := toModel(run)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return workflow.ErrDuplicateIdempotencyKey
		}
		return err
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, run *workflow.Run) error {
	model := toModel(run)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*workflow.Run, error) {
	var model RunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(model), nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, key string) (*workflow.Run, error) {
	if key == "" {
		return nil, nil
	}
	var model RunModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(model), nil
}

func (r *Repository) ListByStatus(ctx context.Context, statuses []workflow.Status, limit int) ([]*workflow.Run, error) {
	query := r.db.WithContext(ctx).Order("updated_at asc")
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where("status IN ?", values)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []RunModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]*workflow.Run, 0, len(models))
	for _, model := range models {
		items = append(items, toDomain(model))
	}
	return items, nil
}

func (r *Repository) CountByStatus(ctx context.Context, status workflow.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RunModel{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RunModel{}).
		Where("state NOT IN ? AND updated_at < ?", terminalStates(), cutoff).
		Count(&count).Error
	return count, err
}

func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*workflow.Run, error) {
	query := r.db.WithContext(ctx).
		Where("state NOT IN ? AND updated_at < ?", terminalStates(), cutoff).
		Order("updated_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []RunModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]*workflow.Run, 0, len(models))
	for _, model := range models {
		items = append(items, toDomain(model))
	}
	return items, nil
}

func terminalStates() []string {
	return []string{
		string(workflow.StateTenantUpdateFailed),
		string(workflow.StateTenantUpdateUnseen),
		string(workflow.StateDone),
	}
}

// Mappers

func toDomain(m RunModel) *workflow.Run {
	run := &workflow.Run{
		ID:              m.ID,
		Kind:            workflow.Kind(m.Kind),
		CorrelationID:   m.CorrelationID,
		OrganizationID:  m.OrganizationID,
		TenantID:        m.TenantID,
		ApplicationID:   m.ApplicationID,
		TargetProductID: m.TargetProductID,
		TargetPriceID:   m.TargetPriceID,
		Classification:  tier.Classification(m.Classification),
		ChangeType:      m.ChangeType,
		State:           workflow.State(m.State),
		Status:          workflow.Status(m.Status),
		RedirectURL:     m.RedirectURL,
		Message:         m.Message,
		Warnings:        workflow.SplitWarnings(m.Warnings),
		TenantFailure:   m.TenantFailure,
		BillingFailure:  m.BillingFailure,
		TenantOutcome:   workflow.Outcome(m.TenantOutcome),
		BillingOutcome:  workflow.Outcome(m.BillingOutcome),
		BillingAttempts: m.BillingAttempts,
		Operator:        m.Operator,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.IdempotencyKey != nil {
		run.IdempotencyKey = *m.IdempotencyKey
	}
	return run
}

func toModel(d *workflow.Run) RunModel {
	m := RunModel{
		ID:              d.ID,
		Kind:            string(d.Kind),
		CorrelationID:   d.CorrelationID,
		OrganizationID:  d.OrganizationID,
		TenantID:        d.TenantID,
		ApplicationID:   d.ApplicationID,
		TargetProductID: d.TargetProductID,
		TargetPriceID:   d.TargetPriceID,
		Classification:  string(d.Classification),
		ChangeType:      d.ChangeType,
		State:           string(d.State),
		Status:          string(d.Status),
		RedirectURL:     d.RedirectURL,
		Message:         d.Message,
		Warnings:        workflow.JoinWarnings(d.Warnings),
		TenantFailure:   d.TenantFailure,
		BillingFailure:  d.BillingFailure,
		TenantOutcome:   string(d.TenantOutcome),
		BillingOutcome:  string(d.BillingOutcome),
		BillingAttempts: d.BillingAttempts,
		Operator:        d.Operator,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.IdempotencyKey != "" {
		key := d.IdempotencyKey
		m.IdempotencyKey = &key
	}
	return m
}
