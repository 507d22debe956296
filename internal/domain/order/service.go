package order

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bookie/internal/domain/auth"
)

const instrumentationName = "github.com/xenking/bookie/internal/domain/order"

// CreateRequest holds the input for creating an order from a cart snapshot.
type CreateRequest struct {
	Items           []LineItem
	ShippingAddress Address
	PaymentRef      string
}

// Summary aggregates all orders for the admin dashboard.
type Summary struct {
	Total    int
	ByStatus map[Status]int
	Revenue  decimal.Decimal
}

// Option configures a Service.
type Option func(*Service)

// WithMeterProvider records order counters on mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider opens spans on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithDefaultCurrency sets the currency recorded for items without one.
func WithDefaultCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

// Service owns order creation and the status pipeline.
type Service struct {
	orders   Repository
	shipping ShippingPolicy
	currency string

	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	created       metric.Int64Counter
	transitions   metric.Int64Counter
}

// NewService creates an order Service backed by orders.
func NewService(orders Repository, shipping ShippingPolicy, opts ...Option) (*Service, error) {
	s := &Service{
		orders:        orders,
		shipping:      shipping,
		currency:      "USD",
		meterProvider: metricnoop.NewMeterProvider(),
		tracer:        tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter(instrumentationName)
	var err error
	if s.created, err = meter.Int64Counter("bookie.orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if s.transitions, err = meter.Int64Counter("bookie.orders.status_changes",
		metric.WithDescription("Accepted order status changes"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.status_changes counter")
	}
	return s, nil
}

// Quote prices items under the configured shipping policy.
func (s *Service) Quote(items []LineItem) Quote {
	return s.shipping.Quote(items)
}

// Create validates the request, prices it and stores a new pending order
// owned by sess. Items are copied; later changes to the caller's slice are
// not reflected in the order.
func (s *Service) Create(ctx context.Context, sess auth.Session, req CreateRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer func() { endSpan(span, rerr) }()

	if !sess.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	currency, err := validateItems(req.Items)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = s.currency
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PaymentRef) == "" {
		return nil, &ValidationError{Field: "payment", Reason: "reference required"}
	}

	contact := sess.Contact
	if contact == "" {
		contact = req.ShippingAddress.Email
	}

	q := s.shipping.Quote(req.Items)
	o := &Order{
		OwnerID:         sess.UserID,
		OwnerContact:    contact,
		Items:           slices.Clone(req.Items),
		Subtotal:        q.Subtotal,
		Shipping:        q.Shipping,
		Total:           q.Total,
		Currency:        currency,
		ShippingAddress: req.ShippingAddress,
		PaymentRef:      req.PaymentRef,
		Status:          StatusPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, unavailable("create order", err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currency)))
	span.SetAttributes(attribute.String("order.id", o.ID))
	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("owner_id", o.OwnerID),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

// Get returns the order with the given id. Customers only see their own
// orders; any other order reads as ErrNotFound.
func (s *Service) Get(ctx context.Context, sess auth.Session, id string) (*Order, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get order", err)
	}
	if !sess.IsAdmin() && o.OwnerID != sess.UserID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns orders matching f, newest first. Non-admin sessions are
// always scoped to their own orders.
func (s *Service) List(ctx context.Context, sess auth.Session, f Filter) ([]Order, error) {
	if !sess.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		f.OwnerID = sess.UserID
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	return orders, nil
}

// Advance moves an order to target, which must be the immediate successor of
// its current status. Requesting the current status is a no-op, so
// re-advancing a delivered order to delivered succeeds without a write.
func (s *Service) Advance(ctx context.Context, sess auth.Session, id string, target Status) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Advance")
	defer func() { endSpan(span, rerr) }()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get order", err)
	}
	if o.Status == target {
		return o, nil
	}
	if !CanAdvance(o.Status, target) {
		return nil, &TransitionError{From: o.Status, To: target}
	}
	return s.setStatus(ctx, o, target, "advance")
}

// AdvanceNext moves an order to the successor of its current status.
// Delivered orders are returned unchanged.
func (s *Service) AdvanceNext(ctx context.Context, sess auth.Session, id string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.AdvanceNext")
	defer func() { endSpan(span, rerr) }()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get order", err)
	}
	next, ok := o.Status.Next()
	if !ok {
		return o, nil
	}
	return s.setStatus(ctx, o, next, "advance")
}

// Override sets any valid status, bypassing the adjacency rule. It exists for
// staff corrections and is logged at warn level.
func (s *Service) Override(ctx context.Context, sess auth.Session, id string, target Status) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Override")
	defer func() { endSpan(span, rerr) }()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get order", err)
	}
	if o.Status == target {
		return o, nil
	}
	zctx.From(ctx).Warn("Overriding order status",
		zap.String("order_id", o.ID),
		zap.Stringer("from", o.Status),
		zap.Stringer("to", target),
		zap.String("admin_id", sess.UserID),
	)
	return s.setStatus(ctx, o, target, "override")
}

func (s *Service) setStatus(ctx context.Context, o *Order, target Status, kind string) (*Order, error) {
	updated, err := s.orders.UpdateStatus(ctx, o.ID, target)
	if err != nil {
		return nil, unavailable("update order status", err)
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", o.Status.String()),
		attribute.String("to", target.String()),
		attribute.String("kind", kind),
	))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.Stringer("from", o.Status),
		zap.Stringer("to", updated.Status),
	)
	return updated, nil
}

// Summary aggregates counts per status and total revenue over all orders.
func (s *Service) Summary(ctx context.Context, sess auth.Session) (*Summary, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, Filter{})
	if err != nil {
		return nil, unavailable("list orders", err)
	}

	sum := &Summary{
		Total:    len(orders),
		ByStatus: make(map[Status]int, len(statusNames)),
		Revenue:  decimal.Zero,
	}
	for _, st := range Statuses() {
		sum.ByStatus[st] = 0
	}
	for _, o := range orders {
		sum.ByStatus[o.Status]++
		sum.Revenue = sum.Revenue.Add(o.Total)
	}
	return sum, nil
}

func requireAdmin(sess auth.Session) error {
	if !sess.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
