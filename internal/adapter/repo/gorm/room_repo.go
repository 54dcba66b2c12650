package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duelarena/internal/adapter/repo/gorm/model"
	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepo {
	return RoomRepo{db: db}
}

func (r RoomRepo) GetRoom(ctx context.Context, code string) (duel.Room, error) {
	var m model.Room
	if err := getDBFromCtx(ctx, r.db).Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return duel.Room{}, ports.ErrNotFound
		}
		return duel.Room{}, err
	}
	return roomFromModel(m), nil
}

// CreateRoom inserts with ON CONFLICT DO NOTHING so a lost race leaves the
// surrounding postgres transaction usable.
func (r RoomRepo) CreateRoom(ctx context.Context, room duel.Room) error {
	m := roomToModel(room)
	res := getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ports.ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r RoomRepo) SaveRoom(ctx context.Context, room duel.Room) error {
	m := roomToModel(room)
	res := getDBFromCtx(ctx, r.db).Model(&model.Room{}).
		Where("code = ?", room.Code).
		Updates(map[string]any{
			"p1_id":      m.P1ID,
			"p2_id":      m.P2ID,
			"p1_hp":      m.P1Hp,
			"p2_hp":      m.P2Hp,
			"p1_tokens":  m.P1Tokens,
			"p2_tokens":  m.P2Tokens,
			"turn":       m.Turn,
			"deadline":   m.Deadline,
			"finished":   m.Finished,
			"winner":     m.Winner,
			"updated_at": m.UpdatedAt,
			"active_at":  m.ActiveAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r RoomRepo) ListOpenRoomCodes(ctx context.Context) ([]string, error) {
	codes := make([]string, 0)
	err := getDBFromCtx(ctx, r.db).Model(&model.Room{}).
		Where("finished = ?", false).
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Evictor deletes rooms without participant activity, with their turns.
type Evictor struct {
	db *gorm.DB
	tx TxManager
}

func NewEvictor(db *gorm.DB, tx TxManager) Evictor {
	return Evictor{db: db, tx: tx}
}

func (e Evictor) IdleRoomCodes(ctx context.Context, idleSince time.Time) ([]string, error) {
	codes := make([]string, 0)
	if err := getDBFromCtx(ctx, e.db).WithContext(ctx).Model(&model.Room{}).
		Where("active_at < ?", idleSince.UTC()).
		Order("code").
		Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("list idle rooms: %w", err)
	}
	return codes, nil
}

func (e Evictor) EvictRoom(ctx context.Context, code string, idleSince time.Time) (bool, error) {
	removed := false
	err := e.tx.RunInRoom(ctx, code, func(txCtx context.Context) error {
		db := getDBFromCtx(txCtx, e.db)
		res := db.Where("code = ? AND active_at < ?", code, idleSince.UTC()).Delete(&model.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return db.Where("room_code = ?", code).Delete(&model.Turn{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("evict room %s: %w", code, err)
	}
	return removed, nil
}

func roomToModel(r duel.Room) model.Room {
	return model.Room{
		Code:      r.Code,
		P1ID:      r.P1ID,
		P2ID:      r.P2ID,
		P1Hp:      int32(r.P1HP),
		P2Hp:      int32(r.P2HP),
		P1Tokens:  int32(r.P1Tokens),
		P2Tokens:  int32(r.P2Tokens),
		Turn:      int32(r.Turn),
		Deadline:  r.Deadline.UTC(),
		Finished:  r.Finished,
		Winner:    int16(r.Winner),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		ActiveAt:  r.ActiveAt.UTC(),
	}
}

func roomFromModel(m model.Room) duel.Room {
	return duel.Room{
		Code:      m.Code,
		P1ID:      m.P1ID,
		P2ID:      m.P2ID,
		P1HP:      int(m.P1Hp),
		P2HP:      int(m.P2Hp),
		P1Tokens:  int(m.P1Tokens),
		P2Tokens:  int(m.P2Tokens),
		Turn:      int(m.Turn),
		Deadline:  m.Deadline.UTC(),
		Finished:  m.Finished,
		Winner:    duel.Seat(m.Winner),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		ActiveAt:  m.ActiveAt.UTC(),
	}
}
