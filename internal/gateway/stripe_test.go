package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func sign(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": "2020-08-27",
		"type": %q,
		"data": {"object": {"id": %q, "object": "checkout.session", "metadata": {"payment_id": "17"}}}
	}`, eventType, sessionID))
}

func newTestGateway(t *testing.T, backendURL string) *StripeGateway {
	t.Helper()

	return NewStripeGateway(Options{
		SecretKey:     "sk_test_123",
		PublicKey:     "pk_test_123",
		WebhookSecret: testWebhookSecret,
		BackendURL:    backendURL,
	}, zap.NewNop())
}

func TestParseWebhook(t *testing.T) {
	g := newTestGateway(t, "")

	tests := []struct {
		name          string
		payload       []byte
		secret        string
		wantErr       error
		wantType      EventType
		wantSessionID string
	}{
		{
			name:          "completed",
			payload:       eventPayload("checkout.session.completed", "cs_test_a"),
			secret:        testWebhookSecret,
			wantType:      EventSessionCompleted,
			wantSessionID: "cs_test_a",
		},
		{
			name:          "expired",
			payload:       eventPayload("checkout.session.expired", "cs_test_b"),
			secret:        testWebhookSecret,
			wantType:      EventSessionExpired,
			wantSessionID: "cs_test_b",
		},
		{
			name:     "unrelated event",
			payload:  eventPayload("customer.created", "cus_1"),
			secret:   testWebhookSecret,
			wantType: EventOther,
		},
		{
			name:    "wrong secret",
			payload: eventPayload("checkout.session.completed", "cs_test_a"),
			secret:  "whsec_other",
			wantErr: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := g.ParseWebhook(tt.payload, sign(t, tt.payload, tt.secret))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ev.Type)
			assert.Equal(t, tt.wantSessionID, ev.SessionID)
			if tt.wantType != EventOther {
				assert.Equal(t, int64(17), ev.PaymentID)
			}
		})
	}
}

func TestParseWebhook_MissingHeader(t *testing.T) {
	g := newTestGateway(t, "")

	_, err := g.ParseWebhook(eventPayload("checkout.session.completed", "cs_test_a"), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhook_EmptySecretRejectsEverything(t *testing.T) {
	g := NewStripeGateway(Options{SecretKey: "sk_test_123"}, zap.NewNop())
	require.False(t, g.VerifiesWebhooks())

	payload := eventPayload("checkout.session.completed", "cs_forged")
	ev, err := g.ParseWebhook(payload, sign(t, payload, ""))

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Nil(t, ev)
	assert.True(t, newTestGateway(t, "").VerifiesWebhooks())
}

func TestCreateSession(t *testing.T) {
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_new","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_new"}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL)

	s, err := g.CreateSession(context.Background(), SessionRequest{
		PaymentID:   17,
		Amount:      decimal.RequireFromString("1000.50"),
		Currency:    "rub",
		ProductName: "Full-time",
		SuccessURL:  "http://localhost/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   "http://localhost/payment/cancel",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_new", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_new", s.URL)
	assert.Equal(t, []string{"100050"}, gotForm["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, []string{"rub"}, gotForm["line_items[0][price_data][currency]"])
	assert.Equal(t, []string{"17"}, gotForm["metadata[payment_id]"])
	assert.Equal(t, "pk_test_123", g.PublicKey())
}

func TestCreateSession_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad amount"}}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL)

	_, err := g.CreateSession(context.Background(), SessionRequest{
		PaymentID: 1,
		Amount:    decimal.NewFromInt(1),
		Currency:  "rub",
	})
	assert.Error(t, err)
}
