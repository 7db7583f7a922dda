package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/gateway"
	"github.com/mmeshcher/tuition-portal/internal/metrics"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
)

// WebhookOutcome описывает результат обработки уведомления шлюза.
type WebhookOutcome int

const (
	// OutcomeRejected: подпись не прошла проверку, журнал не менялся.
	OutcomeRejected WebhookOutcome = iota
	// OutcomePaid: платёж переведён из pending в paid.
	OutcomePaid
	// OutcomeAlreadyProcessed: платёж уже не в статусе pending.
	OutcomeAlreadyProcessed
	// OutcomeUnknownSession: в журнале нет платежа с такой сессией.
	OutcomeUnknownSession
	// OutcomeCancelled: истёкшая сессия, платёж переведён в cancelled.
	OutcomeCancelled
	// OutcomeIgnored: событие не относится к оплате.
	OutcomeIgnored
)

// webhookErrorLabel помечает в метриках уведомления, обработка которых упала.
const webhookErrorLabel = "error"

func (o WebhookOutcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomePaid:
		return "paid"
	case OutcomeAlreadyProcessed:
		return "already_processed"
	case OutcomeUnknownSession:
		return "unknown_session"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeIgnored:
		return "ignored"
	}
	return "unknown"
}

// HandleWebhook проверяет уведомление шлюза и применяет его к журналу платежей.
// Переход pending -> paid выполняется не более одного раза на сессию,
// повторные и неизвестные уведомления завершаются без ошибки.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.IncWebhook(OutcomeRejected.String())
		s.logger.Warn("webhook rejected", zap.Error(err))
		return OutcomeRejected, fmt.Errorf("%w: %w", ErrWebhookRejected, err)
	}

	var outcome WebhookOutcome
	switch {
	case ev.SessionID == "" || ev.Type == gateway.EventOther:
		outcome = OutcomeIgnored
	case ev.Type == gateway.EventSessionCompleted:
		outcome, err = s.reconcilePaid(ctx, ev.SessionID)
	case ev.Type == gateway.EventSessionExpired:
		outcome, err = s.reconcileExpired(ctx, ev.SessionID)
	}
	if err != nil {
		metrics.IncWebhook(webhookErrorLabel)
		s.logger.Error("webhook processing failed",
			zap.String("event_id", ev.ID),
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
		return outcome, err
	}

	metrics.IncWebhook(outcome.String())
	s.logger.Info("webhook processed",
		zap.String("event_id", ev.ID),
		zap.String("session_id", ev.SessionID),
		zap.Stringer("outcome", outcome),
	)
	return outcome, nil
}

func (s *Service) reconcilePaid(ctx context.Context, sessionID string) (WebhookOutcome, error) {
	p, transitioned, err := s.repo.MarkPaidBySession(ctx, sessionID)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("reconcile session %s: %w", sessionID, err)
	}

	if !transitioned {
		return s.classifyNoop(ctx, sessionID)
	}

	metrics.AddRevenue(p.Currency, p.Amount)
	s.emitReceipt(ctx, p)

	return OutcomePaid, nil
}

func (s *Service) reconcileExpired(ctx context.Context, sessionID string) (WebhookOutcome, error) {
	cancelled, err := s.repo.MarkCancelledBySession(ctx, sessionID)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("expire session %s: %w", sessionID, err)
	}
	if !cancelled {
		return s.classifyNoop(ctx, sessionID)
	}
	return OutcomeCancelled, nil
}

func (s *Service) classifyNoop(ctx context.Context, sessionID string) (WebhookOutcome, error) {
	_, err := s.repo.GetPaymentBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return OutcomeUnknownSession, nil
	}
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	return OutcomeAlreadyProcessed, nil
}

// emitReceipt выпускает квитанцию. Ошибка только логируется: статус paid уже зафиксирован.
func (s *Service) emitReceipt(ctx context.Context, p *model.Payment) {
	if s.receipts == nil {
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ReceiptTimeout)
	defer cancel()

	if _, err := s.receipts.Emit(rctx, p); err != nil {
		s.logger.Error("receipt emission failed",
			zap.Int64("payment_id", p.ID),
			zap.Error(err),
		)
	}
}
