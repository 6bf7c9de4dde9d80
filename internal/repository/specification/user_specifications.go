package specification

import "gorm.io/gorm"

// UserOwnedBy scopes rows to the token subject that owns them.
type UserOwnedBy struct {
	UserID string
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
