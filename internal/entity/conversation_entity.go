package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id        uuid.UUID
	UserId    string
	Title     string
	ModelId   string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
