package gormrepo

import (
	"context"
	"fmt"

	"duelarena/internal/adapter/repo/gorm/model"
	"duelarena/internal/app/shared/keyedmutex"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxManager runs each room's unit of work in one database transaction. Within
// the process rooms are serialized by a keyed mutex; on postgres the room row is
// also locked FOR UPDATE so several servers sharing a database stay exclusive.
type TxManager struct {
	db    *gorm.DB
	locks *keyedmutex.Mutex
}

func NewTxManager(db *gorm.DB) TxManager {
	return TxManager{db: db, locks: &keyedmutex.Mutex{}}
}

func (t TxManager) RunInRoom(ctx context.Context, code string, fn func(ctx context.Context) error) error {
	if t.locks.Held(ctx, code) {
		return fn(ctx)
	}
	lockedCtx, unlock := t.locks.Enter(ctx, code)
	defer unlock()

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) {
			var rows []model.Room
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("code = ?", code).Limit(1).Find(&rows).Error; err != nil {
				return fmt.Errorf("lock room %s: %w", code, err)
			}
		}
		return fn(withTx(lockedCtx, tx))
	})
}
