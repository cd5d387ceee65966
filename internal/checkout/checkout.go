package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PaymentCashOnDelivery = "cod"
	PaymentOnline         = "online"

	DefaultProcessingDelay = 1400 * time.Millisecond
)

var (
	freeDeliveryOver = decimal.NewFromInt(500)
	deliveryCharge   = decimal.NewFromInt(40)
	discountRate     = decimal.RequireFromString("0.1")
)

var (
	ErrNotAuthenticated     = errors.New("login required to place an order")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidAddress       = errors.New("address requires name, address and phone")
)

// DefaultAddresses are offered when the customer has not entered one.
var DefaultAddresses = []d.Address{
	{ID: "1", Name: "Home", Address: "123 Main St, City, State 123456", Phone: "9876543210", IsDefault: true},
	{ID: "2", Name: "Office", Address: "456 Work Ave, City, State 654321", Phone: "9876543211"},
}

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Delivery decimal.Decimal `json:"delivery"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteFor prices a cart subtotal: delivery is free above 500, and the
// discount is 10% of the subtotal rounded down to a whole unit.
func QuoteFor(subtotal decimal.Decimal) Quote {
	delivery := deliveryCharge
	if subtotal.GreaterThan(freeDeliveryOver) {
		delivery = decimal.Zero
	}
	discount := subtotal.Mul(discountRate).Floor()
	return Quote{
		Subtotal: subtotal,
		Delivery: delivery,
		Discount: discount,
		Total:    subtotal.Add(delivery).Sub(discount),
	}
}

type Cart interface {
	Items() []d.CartLineItem
	TotalPrice() decimal.Decimal
	// TakeItems empties the cart atomically and returns the removed lines.
	TakeItems(ctx context.Context) []d.CartLineItem
}

type OrderRecorder interface {
	AddOrder(ctx context.Context, userID d.ID, draft d.Order) d.Order
}

type Users interface {
	Current(ctx context.Context) (d.User, bool)
}

type Request struct {
	Address       *d.Address `json:"address,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
}

type Service struct {
	orders OrderRecorder
	users  Users
	delay  time.Duration
	log    *zap.Logger
}

func NewService(orders OrderRecorder, users Users, delay time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if delay < 0 {
		delay = 0
	}
	return &Service{orders: orders, users: users, delay: delay, log: log.Named("checkout")}
}

func (s *Service) Quote(c Cart) Quote {
	return QuoteFor(c.TotalPrice())
}

// PlaceOrder records the cart as a Confirmed order of the logged-in user and
// empties the cart. The order holds the cart as it is when processing ends.
// Nothing is recorded when ctx ends during processing.
func (s *Service) PlaceOrder(ctx context.Context, c Cart, req Request) (d.Order, error) {
	user, ok := s.users.Current(ctx)
	if !ok {
		return d.Order{}, ErrNotAuthenticated
	}
	if len(c.Items()) == 0 {
		return d.Order{}, ErrEmptyCart
	}

	method := req.PaymentMethod
	if method == "" {
		method = PaymentCashOnDelivery
	}
	if method != PaymentCashOnDelivery && method != PaymentOnline {
		return d.Order{}, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	address := DefaultAddresses[0]
	if req.Address != nil {
		if req.Address.Name == "" || req.Address.Address == "" || req.Address.Phone == "" {
			return d.Order{}, ErrInvalidAddress
		}
		address = *req.Address
	}

	if err := wait(ctx, s.delay); err != nil {
		return d.Order{}, err
	}
	items := c.TakeItems(ctx)
	if len(items) == 0 {
		return d.Order{}, ErrEmptyCart
	}

	quote := QuoteFor(d.ComputeTotals(items).Price)
	order := s.orders.AddOrder(ctx, user.ID, d.Order{
		Items:         items,
		Total:         quote.Total,
		Address:       &address,
		PaymentMethod: method,
		Status:        d.OrderStatusConfirmed,
	})

	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("total", order.Total.String()),
		zap.String("payment_method", method))
	return order, nil
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
