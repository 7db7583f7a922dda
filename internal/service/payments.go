package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/storage"
	"github.com/mmeshcher/tuition-portal/internal/validation"
)

// File описывает документ, отдаваемый пользователю.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// GetPaymentBySession возвращает платёж по идентификатору сессии шлюза.
func (s *Service) GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	return s.repo.GetPaymentBySession(ctx, sessionID)
}

// ListUserPayments возвращает платежи пользователя, начиная с новых.
func (s *Service) ListUserPayments(ctx context.Context, userID int64) ([]model.Payment, error) {
	return s.repo.ListPaymentsByUser(ctx, userID)
}

// ListPayments возвращает весь журнал платежей.
func (s *Service) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx)
}

// DeletePayment удаляет платёж. Административная операция вне жизненного цикла платежа.
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.logger.Info("payment deleted", zap.Int64("payment_id", id))
	return nil
}

// Stats возвращает сводку по журналу платежей.
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	return s.repo.GetStats(ctx)
}

// RegenerateReceipt повторно выпускает квитанцию оплаченного платежа.
func (s *Service) RegenerateReceipt(ctx context.Context, paymentID int64) (string, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if !p.IsPaid() {
		return "", fmt.Errorf("%w: %d", ErrNotPaid, paymentID)
	}
	return s.receipts.Emit(ctx, p)
}

// ReceiptFile возвращает квитанцию платежа его владельцу.
// Для чужого платежа возвращается ErrPaymentNotFound.
func (s *Service) ReceiptFile(ctx context.Context, userID, paymentID int64) (*File, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: %d", repository.ErrPaymentNotFound, paymentID)
	}
	return s.loadReceipt(ctx, p)
}

// ReceiptFileBySession возвращает квитанцию по идентификатору сессии шлюза.
func (s *Service) ReceiptFileBySession(ctx context.Context, sessionID string) (*File, error) {
	p, err := s.repo.GetPaymentBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.loadReceipt(ctx, p)
}

// StaffReceiptFile возвращает квитанцию любого платежа для сотрудников.
func (s *Service) StaffReceiptFile(ctx context.Context, paymentID int64) (*File, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.loadReceipt(ctx, p)
}

func (s *Service) loadReceipt(ctx context.Context, p *model.Payment) (*File, error) {
	if !p.IsPaid() || p.ReceiptRef == nil {
		return nil, fmt.Errorf("%w: %d", ErrReceiptNotReady, p.ID)
	}

	data, err := s.store.Get(ctx, *p.ReceiptRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrReceiptNotReady, p.ID)
		}
		return nil, err
	}

	return &File{Name: *p.ReceiptRef, ContentType: pdfContentType, Data: data}, nil
}

// SubmitContact сохраняет сообщение из формы обратной связи.
func (s *Service) SubmitContact(ctx context.Context, name, email, message string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	message = strings.TrimSpace(message)

	if err := validation.First(
		validation.Required("name", name),
		validation.Email("email", email),
		validation.Required("message", message),
	); err != nil {
		return err
	}

	return s.repo.CreateContact(ctx, name, email, message)
}

// ListContacts возвращает сообщения обратной связи.
func (s *Service) ListContacts(ctx context.Context) ([]model.Contact, error) {
	return s.repo.ListContacts(ctx)
}

// ListDocuments возвращает журнал сформированных документов.
func (s *Service) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return s.repo.ListDocuments(ctx)
}
