package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedConversation restricts message queries to conversations owned by the
// user, so a foreign conversation id yields no rows.
type OwnedConversation struct {
	ConversationID uuid.UUID
	UserID         string
}

func (s OwnedConversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(
		"conversation_id = ? AND EXISTS (SELECT 1 FROM conversations c WHERE c.id = messages.conversation_id AND c.user_id = ?)",
		s.ConversationID, s.UserID,
	)
}

// Chronological orders messages oldest first, insertion order on ties.
type Chronological struct{}

func (s Chronological) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("seq ASC")
}

// NewestFirst orders conversations by creation time descending.
type NewestFirst struct{}

func (s NewestFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
