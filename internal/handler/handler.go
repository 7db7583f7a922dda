// Package handler содержит HTTP-обработчики портала оплаты обучения.
package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
	"github.com/mmeshcher/tuition-portal/internal/validation"
)

//go:embed templates
var templatesFS embed.FS

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Health(ctx context.Context) error

	RegisterUser(ctx context.Context, username, email, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, email, newPassword string) error
	ListUsers(ctx context.Context) ([]model.User, error)
	SetUserRole(ctx context.Context, userID int64, role string) error

	ListTariffs(ctx context.Context) ([]model.Tariff, error)
	GetTariff(ctx context.Context, id int64) (*model.Tariff, error)
	CreateTariff(ctx context.Context, in service.TariffInput) (*model.Tariff, error)
	UpdateTariff(ctx context.Context, id int64, in service.TariffInput) error
	DeleteTariff(ctx context.Context, id int64) error

	StartCheckout(ctx context.Context, tariffID int64, userID *int64, fio string) (*service.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookOutcome, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error)
	ListUserPayments(ctx context.Context, userID int64) ([]model.Payment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*model.Stats, error)

	RegenerateReceipt(ctx context.Context, paymentID int64) (string, error)
	ReceiptFile(ctx context.Context, userID, paymentID int64) (*service.File, error)
	ReceiptFileBySession(ctx context.Context, sessionID string) (*service.File, error)
	StaffReceiptFile(ctx context.Context, paymentID int64) (*service.File, error)

	SubmitContact(ctx context.Context, name, email, message string) error
	ListContacts(ctx context.Context) ([]model.Contact, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)

	ExportXLSX(ctx context.Context) (*service.File, error)
	ExportCSV(ctx context.Context) (*service.File, error)
	ExportDOCX(ctx context.Context) (*service.File, error)
}

// Handler реализует HTTP-обработчики портала.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *middleware.SessionManager
	gate     *middleware.Gate
	pages    map[string]*template.Template
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, sessions *middleware.SessionManager) *Handler {
	h := &Handler{
		service:  s,
		logger:   logger,
		sessions: sessions,
		pages:    mustParsePages(),
	}
	h.gate = middleware.NewGate(http.HandlerFunc(h.Forbidden))
	return h
}

var fieldLabels = map[string]string{
	"username": "Логин",
	"email":    "Email",
	"password": "Пароль",
	"name":     "Имя",
	"title":    "Название",
	"price":    "Цена",
	"message":  "Сообщение",
	"role":     "Роль",
}

var statusLabels = map[model.PaymentStatus]string{
	model.PaymentStatusPending:   "Ожидает оплаты",
	model.PaymentStatusPaid:      "Оплачен",
	model.PaymentStatusCancelled: "Отменён",
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02.01.2006 15:04")
	},
	"datep": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02.01.2006 15:04")
	},
	"upper":  strings.ToUpper,
	"status": func(s model.PaymentStatus) string { return statusLabels[s] },
	"isStaff": func(id *middleware.Identity) bool {
		return id.Is(model.RoleAdmin, model.RoleManager)
	},
	"isAdmin": func(id *middleware.Identity) bool {
		return id.Is(model.RoleAdmin)
	},
	"roles": func() []model.Role {
		return []model.Role{model.RoleAdmin, model.RoleManager, model.RoleClient}
	},
}

func mustParsePages() map[string]*template.Template {
	entries, err := templatesFS.ReadDir("templates/pages")
	if err != nil {
		panic(fmt.Sprintf("read templates: %v", err))
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		pages[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(
			templatesFS, "templates/layout.html", "templates/pages/"+e.Name(),
		))
	}
	return pages
}

type pageData struct {
	Title string
	Flash string
	User  *middleware.Identity
	Data  any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	tmpl, ok := h.pages[page]
	if !ok {
		h.logger.Error("unknown page", zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, _ := middleware.IdentityFromContext(r.Context())
	pd := pageData{
		Title: title,
		Flash: h.sessions.PopFlash(w, r),
		User:  id,
		Data:  data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pd); err != nil {
		h.logger.Error("render page error", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, message string) {
	if message != "" {
		h.sessions.SetFlash(w, message)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail отвечает страницей ошибки, подходящей для err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isNotFound(err):
		h.NotFound(w, r)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.render(w, r, http.StatusInternalServerError, "error", "Ошибка", nil)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrTariffNotFound) ||
		errors.Is(err, repository.ErrPaymentNotFound) ||
		errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, service.ErrReceiptNotReady)
}

// flashMessage возвращает текст ошибки валидации для пользователя.
func flashMessage(err error) (string, bool) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return "", false
	}
	label, ok := fieldLabels[verr.Field]
	if !ok {
		label = verr.Field
	}
	return fmt.Sprintf("%s: %s", label, verr.Reason), true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(w http.ResponseWriter, f *service.File) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

// NotFound отвечает страницей 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", "Страница не найдена", nil)
}

// Forbidden отвечает страницей 403 для пользователя без нужной роли.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "forbidden", "Доступ запрещён", nil)
}

// Health сообщает о доступности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
