package database

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite only supports one writer at a time, so we need a lock whenever we
// write to the database. Postgres does not care, and the contention is
// negligible for chat-sized traffic.
var dbMutex sync.Mutex

func SaveTurn(ctx context.Context, db *gorm.DB, turn *ConversationTurn) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(turn).Error
}

// RecentTurns returns up to limit turns for the conversation, oldest first.
func RecentTurns(ctx context.Context, db *gorm.DB, chatID string, limit int) ([]ConversationTurn, error) {
	var turns []ConversationTurn
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// UpsertContext overwrites the derived context for the chat id. The previous
// row is replaced wholesale, not merged.
func UpsertContext(ctx context.Context, db *gorm.DB, cctx *ConversationContext) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	cctx.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			UpdateAll: true,
		}).
		Create(cctx).Error
}

// GetContext returns nil without error when the conversation has no derived
// context yet.
func GetContext(ctx context.Context, db *gorm.DB, chatID string) (*ConversationContext, error) {
	var cctx ConversationContext
	err := db.WithContext(ctx).First(&cctx, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cctx, nil
}

// SaveAuditRecord appends to the audit trail. Failures are logged and
// swallowed; the trail must never block answering.
func SaveAuditRecord(ctx context.Context, db *gorm.DB, rec *AuditRecord) {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		slog.Error("error saving audit record", "chat_id", rec.ChatID, "error", err)
	}
}

func GetChatAuditHistory(ctx context.Context, db *gorm.DB, chatID string) ([]AuditRecord, error) {
	var records []AuditRecord
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC").
		Find(&records).Error
	return records, err
}

func GetUserAuditHistory(ctx context.Context, db *gorm.DB, email string) ([]AuditRecord, error) {
	var records []AuditRecord
	err := db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("timestamp DESC, id DESC").
		Find(&records).Error
	return records, err
}
