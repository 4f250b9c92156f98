// Package repository archives completed qualification calls to Postgres.
// The archive is best-effort history for operators; the CRM remains the
// system of record for the verdict itself.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxsell/voice-sales-agent/internal/domain"
)

// CallRecordRepository persists completed calls and their turn history.
type CallRecordRepository struct {
	db *gorm.DB
}

// NewCallRecordRepository creates a new call-record repository.
func NewCallRecordRepository(db *gorm.DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

func allModels() []interface{} {
	return []interface{}{&domain.CallRecord{}, &domain.CallRecordTurn{}}
}

// Archive stores a completed conversation with its verdict. The record
// and its turns are written in one transaction.
func (r *CallRecordRepository) Archive(ctx context.Context, state *domain.ConversationState, verdict domain.FinalVerdict) (*domain.CallRecord, error) {
	if state == nil {
		return nil, fmt.Errorf("conversation state cannot be nil")
	}

	now := time.Now()
	record := &domain.CallRecord{
		ID:          uuid.New().String(),
		LeadID:      state.LeadID,
		CallSID:     state.CallSID,
		Verdict:     verdict.Result,
		Summary:     verdict.Summary,
		Reason:      verdict.Reason,
		StartedAt:   state.StartedAt,
		CompletedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	turns := make([]*domain.CallRecordTurn, 0, len(state.Turns))
	for _, turn := range state.Turns {
		turns = append(turns, &domain.CallRecordTurn{
			ID:           uuid.New().String(),
			CallRecordID: record.ID,
			Speaker:      turn.Speaker,
			Text:         turn.Text,
			Confidence:   turn.Confidence,
			SpokenAt:     turn.Timestamp,
			CreatedAt:    now,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create call record: %w", err)
		}
		if len(turns) > 0 {
			if err := tx.Create(turns).Error; err != nil {
				return fmt.Errorf("failed to create call record turns: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetByCallSID retrieves an archived call by its provider call SID.
func (r *CallRecordRepository) GetByCallSID(ctx context.Context, callSID string) (*domain.CallRecord, error) {
	var record domain.CallRecord
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &record, nil
}

// FindByLeadID lists archived calls for a lead, newest first.
func (r *CallRecordRepository) FindByLeadID(ctx context.Context, leadID string) ([]*domain.CallRecord, error) {
	var records []*domain.CallRecord
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("completed_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find call records: %w", err)
	}
	return records, nil
}
