package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alert.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Raise(ctx context.Context, orderID int64, kind, message string) error {
	alert := domain.Alert{
		ID:        s.genID.Generate().Int64(),
		OrderID:   orderID,
		Kind:      kind,
		Message:   message,
		Status:    domain.AlertOpen,
		CreatedAt: s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO operator_alerts (id, order_id, kind, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.OrderID, alert.Kind, alert.Message, alert.Status, alert.CreatedAt,
	).Error
	if err != nil {
		return err
	}

	s.log.Warn("operator alert raised",
		zap.Int64("order_id", orderID),
		zap.String("kind", kind),
		zap.String("message", message),
	)
	return nil
}

func (s *Service) ListOpen(ctx context.Context) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM operator_alerts WHERE status = ? ORDER BY created_at DESC`,
		domain.AlertOpen,
	).Scan(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *Service) Resolve(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE operator_alerts SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		domain.AlertResolved, s.clock.Now(), id, domain.AlertOpen,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
