package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		currency: p.Cfg.Currency,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	kind := domain.ItemKind(strings.TrimSpace(req.Kind))
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	if req.PriceAmount <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	billingCycle := strings.TrimSpace(req.BillingCycle)
	if kind == domain.KindPlan && billingCycle == "" {
		billingCycle = "monthly"
	}
	toolRef := strings.TrimSpace(req.ToolRef)
	if kind == domain.KindAPITool && toolRef == "" {
		return nil, domain.ErrInvalidKind
	}

	now := s.clock.Now()
	item := &domain.Item{
		ID:           s.genID.Generate().Int64(),
		Slug:         slug.Make(name),
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Kind:         kind,
		PriceAmount:  req.PriceAmount,
		Currency:     currency,
		LicenseType:  strings.TrimSpace(req.LicenseType),
		BillingCycle: billingCycle,
		ToolRef:      toolRef,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("catalog item created",
		zap.String("slug", item.Slug),
		zap.String("kind", string(item.Kind)),
	)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, itemSlug string) (*domain.Response, error) {
	item, err := s.repo.FindBySlug(ctx, s.db, strings.TrimSpace(itemSlug))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) GetForPurchase(ctx context.Context, itemSlug string) (*domain.Item, error) {
	item, err := s.repo.FindBySlug(ctx, s.db, strings.TrimSpace(itemSlug))
	if err != nil {
		return nil, err
	}
	if item == nil || !item.Active {
		return nil, domain.ErrItemUnavailable
	}
	return item, nil
}

func (s *Service) Archive(ctx context.Context, itemSlug string) (*domain.Response, error) {
	item, err := s.repo.FindBySlug(ctx, s.db, strings.TrimSpace(itemSlug))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.Active = false
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func toResponse(item *domain.Item) domain.Response {
	return domain.Response{
		ID:           snowflake.ID(item.ID).String(),
		Slug:         item.Slug,
		Name:         item.Name,
		Description:  item.Description,
		Kind:         item.Kind,
		PriceAmount:  item.PriceAmount,
		Currency:     item.Currency,
		LicenseType:  item.LicenseType,
		BillingCycle: item.BillingCycle,
		ToolRef:      item.ToolRef,
		Active:       item.Active,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
