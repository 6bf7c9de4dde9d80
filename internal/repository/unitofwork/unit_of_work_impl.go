package unitofwork

import (
	"context"
	"encoding/json"
	"fmt"

	"deonai-be/internal/repository/contract"
	"deonai-be/internal/repository/implementation"
	"deonai-be/pkg/auth"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db      *gorm.DB
	tx      *gorm.DB
	caller  auth.Identity
	rlsRole string
}

func NewUnitOfWork(db *gorm.DB, caller auth.Identity, rlsRole string) UnitOfWork {
	return &UnitOfWorkImpl{
		db:      db,
		caller:  caller,
		rlsRole: rlsRole,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := u.applyCaller(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("apply caller claims: %w", err)
	}
	u.tx = tx
	return nil
}

// applyCaller exposes the verified token to row-level security policies the
// same way PostgREST does: transaction-local request.jwt.* settings plus an
// optional role switch.
func (u *UnitOfWorkImpl) applyCaller(tx *gorm.DB) error {
	claims := u.caller.Claims
	if claims == nil {
		claims = map[string]interface{}{"sub": u.caller.Subject}
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	if err := tx.Exec(
		"SELECT set_config('request.jwt.claims', ?, true), set_config('request.jwt.claim.sub', ?, true)",
		string(claimsJSON), u.caller.Subject,
	).Error; err != nil {
		return err
	}

	if u.rlsRole != "" {
		if err := tx.Exec("SET LOCAL ROLE " + pgx.Identifier{u.rlsRole}.Sanitize()).Error; err != nil {
			return err
		}
	}
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ConversationRepository() contract.ConversationRepository {
	return implementation.NewConversationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MessageRepository() contract.MessageRepository {
	return implementation.NewMessageRepository(u.getDB())
}
