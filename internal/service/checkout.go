package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/gateway"
	"github.com/mmeshcher/tuition-portal/internal/metrics"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
)

// CheckoutResult содержит данные для перехода плательщика на страницу шлюза.
type CheckoutResult struct {
	Payment     *model.Payment
	Tariff      *model.Tariff
	SessionID   string
	RedirectURL string
	PublicKey   string
}

// StartCheckout создаёт платёж в статусе pending и сессию оплаты в шлюзе.
// Строка платежа фиксируется до обращения к шлюзу, поэтому ошибка шлюза
// оставляет её в pending без идентификатора сессии.
func (s *Service) StartCheckout(ctx context.Context, tariffID int64, userID *int64, fio string) (*CheckoutResult, error) {
	tariff, err := s.repo.GetTariff(ctx, tariffID)
	if err != nil {
		if errors.Is(err, repository.ErrTariffNotFound) {
			metrics.IncCheckout("not_found")
		}
		return nil, err
	}

	fio = strings.TrimSpace(fio)

	var email string
	if userID != nil {
		u, err := s.repo.GetUserByID(ctx, *userID)
		if err != nil {
			return nil, fmt.Errorf("load payer: %w", err)
		}
		email = u.Email
		if fio == "" {
			fio = u.Username
		}
	}

	p, err := s.repo.CreatePayment(ctx, userID, fio, tariff.Name, tariff.Price, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	sess, err := s.gateway.CreateSession(gwCtx, gateway.SessionRequest{
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		ProductName:   p.Program,
		CustomerEmail: email,
		SuccessURL:    s.opts.BaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.opts.BaseURL + "/payment/cancel",
	})
	if err != nil {
		metrics.IncCheckout("gateway_error")
		s.logger.Warn("gateway session failed",
			zap.Int64("payment_id", p.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if err := s.repo.AttachSession(ctx, p.ID, sess.ID); err != nil {
		return nil, err
	}
	p.SessionID = &sess.ID

	metrics.IncCheckout("created")
	s.logger.Info("checkout started",
		zap.Int64("payment_id", p.ID),
		zap.String("session_id", sess.ID),
		zap.String("amount", p.Amount.StringFixed(2)),
	)

	return &CheckoutResult{
		Payment:     p,
		Tariff:      tariff,
		SessionID:   sess.ID,
		RedirectURL: sess.URL,
		PublicKey:   s.gateway.PublicKey(),
	}, nil
}
