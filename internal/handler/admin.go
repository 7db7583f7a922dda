package handler

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
)

type adminIndexView struct {
	Stats  *model.Stats
	Recent []model.Payment
}

const recentPayments = 10

// AdminIndex отображает главную страницу панели управления.
func (h *Handler) AdminIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(payments) > recentPayments {
		payments = payments[:recentPayments]
	}

	h.render(w, r, http.StatusOK, "admin_index", "Панель управления", adminIndexView{Stats: stats, Recent: payments})
}

// AdminStats отображает статистику платежей.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_stats", "Статистика", stats)
}

// AdminPayments отображает журнал всех платежей.
func (h *Handler) AdminPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_payments", "Платежи", payments)
}

// AdminDownloadReceipt отдаёт квитанцию любого платежа сотруднику.
func (h *Handler) AdminDownloadReceipt(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	f, err := h.service.StaffReceiptFile(r.Context(), paymentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeFile(w, f)
}

// RegenerateReceipt повторно формирует квитанцию оплаченного платежа.
func (h *Handler) RegenerateReceipt(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	name, err := h.service.RegenerateReceipt(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrNotPaid) {
			h.redirectWithFlash(w, r, "/admin/payments", "Квитанция доступна только для оплаченных платежей")
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/admin/payments", fmt.Sprintf("Квитанция %s сформирована", name))
}

// DeletePayment удаляет запись о платеже.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	if err := h.service.DeletePayment(r.Context(), paymentID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("payment deleted", zap.Int64("payment_id", paymentID))
	h.redirectWithFlash(w, r, "/admin/payments", "Платёж удалён")
}

// AdminContacts отображает сообщения из формы обратной связи.
func (h *Handler) AdminContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.service.ListContacts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_contacts", "Обращения", contacts)
}

// AdminTariffs отображает список тарифов.
func (h *Handler) AdminTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.service.ListTariffs(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_tariffs", "Тарифы", tariffs)
}

type tariffFormView struct {
	Action string
	Tariff *model.Tariff
}

// NewTariffForm отображает форму создания тарифа.
func (h *Handler) NewTariffForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_tariff_form", "Новый тариф", tariffFormView{Action: "/admin/tariffs"})
}

func tariffInput(r *http.Request) service.TariffInput {
	return service.TariffInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Price:       r.PostFormValue("price"),
	}
}

// CreateTariff создаёт тариф.
func (h *Handler) CreateTariff(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.service.CreateTariff(r.Context(), tariffInput(r)); err != nil {
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, "/admin/tariffs/new", msg)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/admin/tariffs", "Тариф добавлен")
}

// EditTariffForm отображает форму редактирования тарифа.
func (h *Handler) EditTariffForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tariffID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	t, err := h.service.GetTariff(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view := tariffFormView{Action: fmt.Sprintf("/admin/tariffs/%d", id), Tariff: t}
	h.render(w, r, http.StatusOK, "admin_tariff_form", "Редактирование тарифа", view)
}

// UpdateTariff сохраняет изменения тарифа. Ранее созданные платежи не меняются.
func (h *Handler) UpdateTariff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tariffID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateTariff(r.Context(), id, tariffInput(r)); err != nil {
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, fmt.Sprintf("/admin/tariffs/%d/edit", id), msg)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/admin/tariffs", "Тариф обновлён")
}

// DeleteTariff удаляет тариф.
func (h *Handler) DeleteTariff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "tariffID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	if err := h.service.DeleteTariff(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/admin/tariffs", "Тариф удалён")
}

// AdminUsers отображает список пользователей.
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_users", "Пользователи", users)
}

// SetUserRole меняет роль пользователя.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		h.NotFound(w, r)
		return
	}

	if id, _ := middleware.IdentityFromContext(r.Context()); id != nil && id.UserID == userID {
		h.redirectWithFlash(w, r, "/admin/users", "Нельзя изменить собственную роль")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetUserRole(r.Context(), userID, r.PostFormValue("role")); err != nil {
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, "/admin/users", msg)
			return
		}
		if errors.Is(err, repository.ErrUnknownRole) {
			h.redirectWithFlash(w, r, "/admin/users", "Неизвестная роль")
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/admin/users", "Роль обновлена")
}

// AdminExports отображает журнал сформированных документов и ссылки на выгрузки.
func (h *Handler) AdminExports(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_exports", "Отчёты", docs)
}

func (h *Handler) export(build func(*http.Request) (*service.File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := build(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeFile(w, f)
	}
}

// ExportXLSX отдаёт журнал платежей в формате Excel.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(func(r *http.Request) (*service.File, error) { return h.service.ExportXLSX(r.Context()) })(w, r)
}

// ExportCSV отдаёт журнал платежей в формате CSV.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(func(r *http.Request) (*service.File, error) { return h.service.ExportCSV(r.Context()) })(w, r)
}

// ExportDOCX отдаёт сводный отчёт в формате Word.
func (h *Handler) ExportDOCX(w http.ResponseWriter, r *http.Request) {
	h.export(func(r *http.Request) (*service.File, error) { return h.service.ExportDOCX(r.Context()) })(w, r)
}
