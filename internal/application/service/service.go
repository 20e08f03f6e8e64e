package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TemirB/merch-checkout/internal/config"
	"github.com/TemirB/merch-checkout/internal/domain"
	"github.com/TemirB/merch-checkout/internal/observability"
	"github.com/TemirB/merch-checkout/internal/paypal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source service.go -destination=service_mock_test.go -package=service

type Processor interface {
	Token(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, token string, order paypal.OrderRequest) (json.RawMessage, error)
	CaptureOrder(ctx context.Context, token, orderID string) (json.RawMessage, error)
}

type Storage interface {
	Insert(context.Context, *domain.Order) error
	ListAll(context.Context) ([]domain.Order, error)
	GetByID(context.Context, int64) (*domain.Order, error)
}

type Cache interface {
	Set(*domain.Order)
	Get(int64) (*domain.Order, bool)
}

type Publisher interface {
	PublishCapture(context.Context, *domain.Order) error
}

type CreateOrderInput struct {
	Total    decimal.NullDecimal
	Currency string
}

type CaptureOrderInput struct {
	OrderID string
	Name    string
	Address string
	Items   json.RawMessage
	Pieces  json.RawMessage
}

type Service struct {
	processor Processor
	storage   Storage
	cache     Cache
	publisher Publisher
	settings  config.Public
	logger    *zap.Logger
	metrics   observability.Metrics
}

// NewService wires the checkout flow. publisher may be nil when capture
// events are disabled.
func NewService(
	processor Processor,
	storage Storage,
	cache Cache,
	publisher Publisher,
	settings config.Public,
	logger *zap.Logger,
	metrics observability.Metrics,
) *Service {
	return &Service{
		processor: processor,
		storage:   storage,
		cache:     cache,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *Service) PublicConfig() config.Public {
	return s.settings
}

// CreateOrder opens a PayPal order for the full amount with intent CAPTURE
// and returns PayPal's answer unchanged.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (json.RawMessage, CheckoutStats, error) {
	var st CheckoutStats

	if !in.Total.Valid {
		return nil, st, fmt.Errorf("%w: total is required", domain.ErrValidation)
	}
	if in.Total.Decimal.IsNegative() {
		return nil, st, fmt.Errorf("%w: total must not be negative", domain.ErrValidation)
	}
	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = s.settings.Currency
	}
	value := in.Total.Decimal.StringFixed(2)

	t0 := time.Now()
	token, err := s.processor.Token(ctx)
	if err != nil {
		s.logger.Error("Can't obtain paypal token", zap.Error(err))
		return nil, st, err
	}

	order, err := s.processor.CreateOrder(ctx, token, paypal.NewCaptureOrder(currency, value))
	st.ProcessorMs = convertToMs(t0)
	if err != nil {
		s.logger.Error("Error while creating paypal order",
			zap.String("currency", currency),
			zap.String("value", value),
			zap.Error(err),
		)
		return nil, st, err
	}

	s.logger.Info("PayPal order created",
		zap.String("currency", currency),
		zap.String("value", value),
		zap.Float64("processor_ms", st.ProcessorMs),
	)
	return order, st, nil
}

// CaptureOrder captures an approved PayPal order and records it. Nothing is
// written when PayPal rejects the capture.
func (s *Service) CaptureOrder(ctx context.Context, in CaptureOrderInput) (json.RawMessage, CheckoutStats, error) {
	var st CheckoutStats

	pieces, err := ParsePieces(in.Pieces)
	if err != nil {
		return nil, st, err
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, st, fmt.Errorf("%w: orderID is required", domain.ErrValidation)
	}
	items := in.Items
	if len(items) == 0 {
		items = json.RawMessage("{}")
	} else if !json.Valid(items) {
		return nil, st, fmt.Errorf("%w: items must be valid JSON", domain.ErrValidation)
	}

	t0 := time.Now()
	token, err := s.processor.Token(ctx)
	if err != nil {
		s.logger.Error("Can't obtain paypal token", zap.Error(err))
		return nil, st, err
	}

	capture, err := s.processor.CaptureOrder(ctx, token, in.OrderID)
	st.ProcessorMs = convertToMs(t0)
	if err != nil {
		s.logger.Error("Error while capturing paypal order",
			zap.String("paypal_order_id", in.OrderID),
			zap.Error(err),
		)
		return nil, st, err
	}

	status := paypal.CaptureStatus(capture)
	if status == "" {
		status = domain.StatusUnknown
	}
	order := &domain.Order{
		PayPalOrderID: in.OrderID,
		Name:          in.Name,
		Address:       in.Address,
		Items:         items,
		Pieces:        pieces,
		Status:        status,
	}

	t1 := time.Now()
	if err := s.storage.Insert(ctx, order); err != nil {
		s.logger.Error("Error while inserting captured order",
			zap.String("paypal_order_id", in.OrderID),
			zap.String("status", status),
			zap.Error(err),
		)
		return nil, st, err
	}
	st.DBWriteMs = convertToMs(t1)
	s.metrics.ObserveInsert(st.DBWriteMs)

	s.cache.Set(order)
	s.publish(ctx, order)

	s.logger.Info("Order captured",
		zap.Int64("id", order.ID),
		zap.String("paypal_order_id", order.PayPalOrderID),
		zap.String("status", status),
		zap.Int("pieces", pieces),
		zap.Float64("processor_ms", st.ProcessorMs),
		zap.Float64("db_write_ms", st.DBWriteMs),
	)
	return capture, st, nil
}

// publish is best effort: the record is already stored.
func (s *Service) publish(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCapture(ctx, order); err != nil {
		s.logger.Warn("Capture event not published",
			zap.Int64("id", order.ID),
			zap.Error(err),
		)
	}
}

// Orders lists every stored record, newest first.
func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.storage.ListAll(ctx)
	if err != nil {
		s.logger.Error("Can't list orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (s *Service) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, _, err := s.OrderByIDWithStats(ctx, id)
	return o, err
}

func (s *Service) OrderByIDWithStats(ctx context.Context, id int64) (*domain.Order, LookupStats, error) {
	var st LookupStats

	tCacheStart := time.Now()
	if order, ok := s.cache.Get(id); ok {
		st.Source = SourceCache
		st.CacheMs = convertToMs(tCacheStart)
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, 0)
		return order, st, nil
	}

	s.metrics.IncCacheMiss()
	st.CacheMs = convertToMs(tCacheStart)

	tDbStart := time.Now()
	order, err := s.storage.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("Can't find order",
			zap.Int64("id", id),
			zap.Error(err),
		)
		return nil, st, err
	}
	st.Source = SourceDB
	st.DBMs = convertToMs(tDbStart)

	s.cache.Set(order)
	s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.DBMs)
	return order, st, nil
}
