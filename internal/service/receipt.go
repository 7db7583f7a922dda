package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/document"
	"github.com/mmeshcher/tuition-portal/internal/mailer"
	"github.com/mmeshcher/tuition-portal/internal/metrics"
	"github.com/mmeshcher/tuition-portal/internal/model"
)

const (
	pdfContentType     = "application/pdf"
	billingSubject     = "Новый платёж за обучение"
	receiptSubjectTmpl = "Квитанция об оплате обучения №%d"
)

var receiptEmailTmpl = template.Must(template.New("receipt").Parse(`<p>Здравствуйте{{if .FIO}}, {{.FIO}}{{end}}!</p>
<p>Платёж №{{.ID}} по программе «{{.Program}}» на сумму {{.Amount}} {{.Currency}} подтверждён.</p>
<p>Квитанция приложена к письму.</p>
<p>Московский университет им. С.Ю. Витте</p>`))

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ReceiptOptions содержит параметры выпуска квитанций.
type ReceiptOptions struct {
	FontPath  string
	BillingTo string
}

// ReceiptEmitter формирует PDF-квитанции, сохраняет их и рассылает по почте.
type ReceiptEmitter struct {
	repo   ReceiptRepository
	store  ObjectStore
	mailer Mailer
	opts   ReceiptOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiptEmitter создаёт эмиттер квитанций. mailer может быть nil, тогда письма не отправляются.
func NewReceiptEmitter(repo ReceiptRepository, store ObjectStore, m Mailer, opts ReceiptOptions, logger *zap.Logger) *ReceiptEmitter {
	return &ReceiptEmitter{
		repo:   repo,
		store:  store,
		mailer: m,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// ReceiptName возвращает имя объекта квитанции платежа.
func ReceiptName(paymentID int64) string {
	return fmt.Sprintf("receipt_%d.pdf", paymentID)
}

// Emit формирует квитанцию для оплаченного платежа и возвращает её имя.
// Повторный вызов перезаписывает файл тем же именем. Ошибки отправки письма не возвращаются.
func (e *ReceiptEmitter) Emit(ctx context.Context, p *model.Payment) (string, error) {
	if !p.IsPaid() {
		return "", fmt.Errorf("%w: %d", ErrNotPaid, p.ID)
	}

	data := document.ReceiptData{
		PaymentID: p.ID,
		FIO:       p.FIO,
		Program:   p.Program,
		Amount:    p.Amount,
		Currency:  p.Currency,
		IssuedAt:  e.now(),
	}
	if p.PaidAt != nil {
		data.PaidAt = *p.PaidAt
	}

	pdf, err := document.RenderReceipt(data, e.opts.FontPath)
	if err != nil {
		metrics.IncReceipt("render_error")
		return "", err
	}

	name := ReceiptName(p.ID)
	if err := e.store.Put(ctx, name, pdfContentType, pdf); err != nil {
		metrics.IncReceipt("store_error")
		return "", fmt.Errorf("store receipt: %w", err)
	}

	if err := e.repo.SetReceiptRef(ctx, p.ID, name); err != nil {
		metrics.IncReceipt("ledger_error")
		return "", err
	}
	p.ReceiptRef = &name

	paymentID := p.ID
	if err := e.repo.AddDocument(ctx, model.DocumentReceipt, name, &paymentID); err != nil {
		e.logger.Warn("document journal write failed", zap.Int64("payment_id", p.ID), zap.Error(err))
	}

	metrics.IncReceipt("generated")
	e.logger.Info("receipt generated", zap.Int64("payment_id", p.ID), zap.String("name", name))

	e.deliver(ctx, p, name, pdf)

	return name, nil
}

func (e *ReceiptEmitter) deliver(ctx context.Context, p *model.Payment, name string, pdf []byte) {
	if e.mailer == nil {
		metrics.IncReceiptEmail("skipped")
		return
	}

	msg, ok := e.composeMessage(ctx, p)
	if !ok {
		metrics.IncReceiptEmail("skipped")
		return
	}
	msg.Attachments = []mailer.Attachment{{Name: name, Data: pdf}}

	if err := e.mailer.Send(ctx, msg); err != nil {
		metrics.IncReceiptEmail("failed")
		e.logger.Warn("receipt email failed",
			zap.Int64("payment_id", p.ID),
			zap.Strings("to", msg.To),
			zap.Error(err),
		)
		paymentID := p.ID
		if logErr := e.repo.AddLog(ctx, "email_error", &paymentID, err.Error()); logErr != nil {
			e.logger.Warn("log write failed", zap.Error(logErr))
		}
		return
	}

	metrics.IncReceiptEmail("sent")
}

// composeMessage выбирает адресатов: владелец платежа с копией в бухгалтерию,
// либо только бухгалтерия, если владелец неизвестен.
func (e *ReceiptEmitter) composeMessage(ctx context.Context, p *model.Payment) (mailer.Message, bool) {
	var ownerEmail string
	if p.UserID != nil {
		u, err := e.repo.GetUserByID(ctx, *p.UserID)
		if err != nil {
			e.logger.Warn("receipt owner lookup failed", zap.Int64("payment_id", p.ID), zap.Error(err))
		} else {
			ownerEmail = strings.TrimSpace(u.Email)
		}
	}

	var body bytes.Buffer
	if err := receiptEmailTmpl.Execute(&body, struct {
		ID       int64
		FIO      string
		Program  string
		Amount   string
		Currency string
	}{p.ID, p.FIO, p.Program, p.Amount.StringFixed(2), strings.ToUpper(p.Currency)}); err != nil {
		e.logger.Warn("receipt email template failed", zap.Error(err))
		return mailer.Message{}, false
	}

	switch {
	case ownerEmail != "":
		msg := mailer.Message{
			To:      []string{ownerEmail},
			Subject: fmt.Sprintf(receiptSubjectTmpl, p.ID),
			HTML:    body.String(),
		}
		if e.opts.BillingTo != "" {
			msg.Cc = []string{e.opts.BillingTo}
		}
		return msg, true
	case e.opts.BillingTo != "":
		return mailer.Message{
			To:      []string{e.opts.BillingTo},
			Subject: billingSubject,
			HTML:    body.String(),
		}, true
	}
	return mailer.Message{}, false
}
