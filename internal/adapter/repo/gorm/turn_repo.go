package gormrepo

import (
	"context"
	"errors"

	"duelarena/internal/adapter/repo/gorm/model"
	"duelarena/internal/app/ports"
	"duelarena/internal/domain/duel"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TurnRepo struct {
	db *gorm.DB
}

func NewTurnRepo(db *gorm.DB) TurnRepo {
	return TurnRepo{db: db}
}

func (r TurnRepo) GetTurn(ctx context.Context, code string, number int) (duel.Turn, error) {
	var m model.Turn
	err := getDBFromCtx(ctx, r.db).
		Where("room_code = ? AND number = ?", code, number).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return duel.Turn{}, ports.ErrNotFound
		}
		return duel.Turn{}, err
	}
	return duel.Turn{
		RoomCode:  m.RoomCode,
		Number:    int(m.Number),
		Deadline:  m.Deadline.UTC(),
		P1Action:  duel.NormalizeAction(m.P1Action),
		P2Action:  duel.NormalizeAction(m.P2Action),
		Resolved:  m.Resolved,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

func (r TurnRepo) CreateTurn(ctx context.Context, turn duel.Turn) error {
	m := turnToModel(turn)
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

func (r TurnRepo) SaveTurn(ctx context.Context, turn duel.Turn) error {
	m := turnToModel(turn)
	res := getDBFromCtx(ctx, r.db).Model(&model.Turn{}).
		Where("room_code = ? AND number = ?", turn.RoomCode, turn.Number).
		Updates(map[string]any{
			"deadline":  m.Deadline,
			"p1_action": m.P1Action,
			"p2_action": m.P2Action,
			"resolved":  m.Resolved,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func turnToModel(t duel.Turn) model.Turn {
	p1, p2 := t.P1Action, t.P2Action
	if p1 == "" {
		p1 = duel.ActionNone
	}
	if p2 == "" {
		p2 = duel.ActionNone
	}
	return model.Turn{
		RoomCode:  t.RoomCode,
		Number:    int32(t.Number),
		Deadline:  t.Deadline.UTC(),
		P1Action:  string(p1),
		P2Action:  string(p2),
		Resolved:  t.Resolved,
		CreatedAt: t.CreatedAt.UTC(),
	}
}
