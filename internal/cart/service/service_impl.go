package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/cart/domain"
	catalogdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	gatewaydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     config.Config
	Catalog catalogdomain.Repository
	Orders  orderdomain.Service
	Repo    orderdomain.Repository
	Gateway gatewaydomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
	catalog  catalogdomain.Repository
	orders   orderdomain.Service
	repo     orderdomain.Repository
	gateway  gatewaydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("cart.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		currency: p.Cfg.Currency,
		catalog:  p.Catalog,
		orders:   p.Orders,
		repo:     p.Repo,
		gateway:  p.Gateway,
	}
}

func (s *Service) DraftOrder(ctx context.Context, buyerRef string, lines []domain.Line) (*orderdomain.Order, error) {
	buyerRef = strings.TrimSpace(buyerRef)
	if buyerRef == "" {
		return nil, domain.ErrInvalidBuyer
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	now := s.clock.Now()
	order := &orderdomain.Order{
		ID:        s.genID.Generate().Int64(),
		BuyerRef:  buyerRef,
		Status:    orderdomain.StatusDraft,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, line := range lines {
		if line.Quantity < 1 || line.Quantity > domain.MaxLineQuantity {
			return nil, domain.ErrInvalidQuantity
		}
	}

	// Price and title snapshots are read in the same transaction that
	// writes the order, so a concurrent reprice cannot split the cart.
	var lineCount int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]orderdomain.OrderItem, 0, len(lines))
		var total int64
		for _, line := range lines {
			item, err := s.catalog.FindBySlug(ctx, tx, strings.TrimSpace(line.ProductRef))
			if err != nil {
				return err
			}
			if item == nil || !item.Active {
				return domain.ErrProductUnavailable
			}

			items = append(items, orderdomain.OrderItem{
				ID:          s.genID.Generate().Int64(),
				OrderID:     order.ID,
				ItemID:      item.ID,
				ItemSlug:    item.Slug,
				ItemTitle:   item.Name,
				ItemKind:    string(item.Kind),
				LicenseType: item.LicenseType,
				Quantity:    line.Quantity,
				UnitAmount:  item.PriceAmount,
				CreatedAt:   now,
			})
			total += item.PriceAmount * int64(line.Quantity)
		}
		order.TotalAmount = total
		lineCount = len(items)

		if err := s.repo.Create(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.CreateItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order drafted",
		zap.Int64("order_id", order.ID),
		zap.String("buyer_ref", buyerRef),
		zap.Int("lines", lineCount),
		zap.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

func (s *Service) Checkout(ctx context.Context, buyerRef string, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	order, err := s.DraftOrder(ctx, buyerRef, req.Lines)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, gatewaydomain.IntentRequest{
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	})
	if err != nil {
		// The draft stands so the client can retry payment later.
		s.log.Warn("payment intent creation failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		resp := &domain.CheckoutResponse{Order: s.orderResponse(ctx, order)}
		return resp, err
	}

	if err := s.orders.BeginPayment(ctx, order.ID, intent.Ref); err != nil {
		return nil, err
	}

	resp, err := s.orders.Get(ctx, buyerRef, snowflake.ID(order.ID).String())
	if err != nil {
		return nil, err
	}
	return &domain.CheckoutResponse{
		Order:               *resp,
		PaymentIntentRef:    intent.Ref,
		PaymentClientSecret: intent.ClientSecret,
	}, nil
}

func (s *Service) orderResponse(ctx context.Context, order *orderdomain.Order) orderdomain.Response {
	resp, err := s.orders.Get(ctx, order.BuyerRef, snowflake.ID(order.ID).String())
	if err != nil || resp == nil {
		return orderdomain.Response{
			ID:          snowflake.ID(order.ID).String(),
			BuyerRef:    order.BuyerRef,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			Currency:    order.Currency,
			CreatedAt:   order.CreatedAt,
		}
	}
	return *resp
}
