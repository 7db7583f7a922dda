// Package gateway содержит адаптер платёжного шлюза Stripe Checkout.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

// ErrInvalidSignature возвращается, если подпись уведомления не прошла проверку.
var ErrInvalidSignature = errors.New("invalid webhook signature")

const metadataPaymentID = "payment_id"

// EventType описывает интересующие портал типы событий шлюза.
type EventType int

const (
	EventOther EventType = iota
	EventSessionCompleted
	EventSessionExpired
)

// SessionRequest описывает параметры создаваемой сессии оплаты.
type SessionRequest struct {
	PaymentID     int64
	Amount        decimal.Decimal
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session описывает созданную внешнюю сессию оплаты.
type Session struct {
	ID  string
	URL string
}

// Event описывает проверенное уведомление шлюза.
type Event struct {
	ID        string
	Type      EventType
	SessionID string
	PaymentID int64
}

// Options содержит параметры подключения к Stripe.
type Options struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
	// BackendURL переопределяет адрес API, пустое значение означает api.stripe.com.
	BackendURL string
	HTTPClient *http.Client
}

// StripeGateway реализует создание сессий Checkout и проверку уведомлений Stripe.
type StripeGateway struct {
	api           *client.API
	publicKey     string
	webhookSecret string
}

// NewStripeGateway создаёт адаптер Stripe с указанными ключами.
func NewStripeGateway(opts Options, logger *zap.Logger) *StripeGateway {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if opts.BackendURL != "" {
		cfg.URL = stripe.String(opts.BackendURL)
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := &client.API{}
	api.Init(opts.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeGateway{
		api:           api,
		publicKey:     opts.PublicKey,
		webhookSecret: opts.WebhookSecret,
	}
}

// VerifiesWebhooks сообщает, задан ли секрет для проверки уведомлений.
func (g *StripeGateway) VerifiesWebhooks() bool {
	return g.webhookSecret != ""
}

// PublicKey возвращает публичный ключ для страницы оформления оплаты.
func (g *StripeGateway) PublicKey() string {
	return g.publicKey
}

// CreateSession создаёт сессию Checkout на сумму платежа.
// Идентификатор платежа передаётся в метаданных сессии.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(model.ToMinor(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(req.PaymentID, 10)),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(metadataPaymentID, strconv.FormatInt(req.PaymentID, 10))
	params.Context = ctx

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

// ParseWebhook проверяет подпись уведомления и извлекает из него сессию.
// Без настроенного секрета любое уведомление отклоняется.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: EventOther}
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		out.Type = EventSessionCompleted
	case stripe.EventTypeCheckoutSessionExpired:
		out.Type = EventSessionExpired
	default:
		return out, nil
	}

	if ev.Data == nil {
		return nil, fmt.Errorf("event %s has no data", ev.ID)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	out.SessionID = cs.ID
	if raw, ok := cs.Metadata[metadataPaymentID]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out.PaymentID = id
		}
	}

	return out, nil
}
