package database

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	SenderUser   = "user"
	SenderBot    = "bot"
	SenderSearch = "search"
)

// ConversationTurn is one side of one exchange. Rows are append-only and are
// never mutated or deleted; the last few turns feed the routing prompt.
type ConversationTurn struct {
	ID        uint           `gorm:"primaryKey"`
	ChatID    string         `gorm:"index;size:64;not null"`
	Role      string         `gorm:"size:16;not null"` // 'user' or 'assistant'
	Content   string         `gorm:"type:text"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"` // {"route": "..."}
	CreatedAt time.Time
}

func (ConversationTurn) TableName() string { return "conversation_turn" }

// ConversationContext is the latest derived structured-query state for a
// conversation. At most one row per chat id; upserted, never appended.
type ConversationContext struct {
	ChatID           string         `gorm:"primaryKey;size:64"`
	LastEntityType   sql.NullString `gorm:"size:64"`
	LastQueryText    string         `gorm:"type:text"`
	LastEntityIDsCSV string         `gorm:"column:last_entity_ids_csv"`
	UpdatedAt        time.Time
}

func (ConversationContext) TableName() string { return "conversation_context" }

// AuditRecord is the independent append-only trail used for history display.
// It is never read back to derive conversation context.
type AuditRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ChatID    string `gorm:"index;size:64"`
	UserEmail string `gorm:"index;size:256"`
	Sender    string `gorm:"size:16"` // 'user', 'bot', or 'search'
	Message   string `gorm:"type:text"`
	Route     string `gorm:"size:32"`
	Timestamp time.Time
	Username  string `gorm:"size:128"`
}

func (AuditRecord) TableName() string { return "audit_log" }
