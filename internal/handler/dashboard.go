package handler

import (
	"errors"
	"net/http"

	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
)

type dashboardView struct {
	User     *model.User
	Payments []model.Payment
}

// Dashboard отображает личный кабинет с историей платежей пользователя.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	u, err := h.service.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	payments, err := h.service.ListUserPayments(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard", "Личный кабинет", dashboardView{User: u, Payments: payments})
}

// ProfileForm отображает форму редактирования профиля.
func (h *Handler) ProfileForm(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	u, err := h.service.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "profile", "Профиль", u)
}

// UpdateProfile сохраняет email и, если указан, новый пароль.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	password := r.PostFormValue("password")
	if password != "" && password != r.PostFormValue("confirm") {
		h.redirectWithFlash(w, r, "/dashboard/profile", "Пароли не совпадают")
		return
	}

	if err := h.service.UpdateProfile(r.Context(), id.UserID, r.PostFormValue("email"), password); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.redirectWithFlash(w, r, "/dashboard/profile", "Email уже используется другим пользователем")
			return
		}
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, "/dashboard/profile", msg)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/dashboard/profile", "Профиль обновлён")
}

// Documents отображает оплаченные платежи пользователя со ссылками на квитанции.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	payments, err := h.service.ListUserPayments(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	paid := make([]model.Payment, 0, len(payments))
	for _, p := range payments {
		if p.IsPaid() {
			paid = append(paid, p)
		}
	}

	h.render(w, r, http.StatusOK, "documents", "Мои документы", paid)
}
