package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/veriport/veriport/internal/domain"
	"github.com/veriport/veriport/internal/infra/database/models"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, decision domain.Decision) error {
	entry := models.DecisionLog{
		RequestID: decision.RequestID,
		Action:    decision.Action,
		Actor:     decision.Actor,
		TxHash:    decision.TxHash,
		URI:       decision.URI,
		URIDigest: decision.URIDigest,
		Detail:    decision.Detail,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *AuditRepository) ListByRequest(ctx context.Context, requestID uint64) ([]domain.Decision, error) {
	var entries []models.DecisionLog
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	decisions := make([]domain.Decision, 0, len(entries))
	for _, entry := range entries {
		decisions = append(decisions, domain.Decision{
			RequestID: entry.RequestID,
			Action:    entry.Action,
			Actor:     entry.Actor,
			TxHash:    entry.TxHash,
			URI:       entry.URI,
			URIDigest: entry.URIDigest,
			Detail:    entry.Detail,
			CDate:     entry.CDate,
		})
	}
	return decisions, nil
}
