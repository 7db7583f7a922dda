package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
)

const maxWebhookBody = 1 << 20

// Checkout создаёт платёж по тарифу и отображает страницу перехода к оплате.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := pathID(r, "tariffID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	var userID *int64
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		uid := id.UserID
		userID = &uid
	}

	res, err := h.service.StartCheckout(r.Context(), tariffID, userID, r.URL.Query().Get("fio"))
	if err != nil {
		if errors.Is(err, service.ErrGateway) {
			h.redirectWithFlash(w, r, "/tuition", "Платёжный сервис временно недоступен. Попробуйте позже.")
			return
		}
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "checkout", "Переход к оплате", res)
}

type successView struct {
	SessionID string
	Payment   *model.Payment
}

// PaymentSuccess отображает страницу возврата после оплаты.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	p, err := h.service.GetPaymentBySession(r.Context(), sessionID)
	if err != nil && !errors.Is(err, repository.ErrPaymentNotFound) {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "success", "Оплата", successView{SessionID: sessionID, Payment: p})
}

// PaymentCancel отображает страницу отмены оплаты.
func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "cancel", "Оплата отменена", nil)
}

// SessionReceipt отдаёт квитанцию по идентификатору сессии со страницы успешной оплаты.
func (h *Handler) SessionReceipt(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.NotFound(w, r)
		return
	}

	f, err := h.service.ReceiptFileBySession(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeFile(w, f)
}

// DownloadReceipt отдаёт квитанцию владельцу платежа.
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	f, err := h.service.ReceiptFile(r.Context(), id.UserID, paymentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeFile(w, f)
}

// Webhook принимает уведомления платёжного шлюза.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid"})
		return
	}

	outcome, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrWebhookRejected) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid"})
			return
		}
		h.logger.Error("webhook processing error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "outcome": outcome.String()})
}
