package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
)

// RegisterForm отображает форму регистрации.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", "Регистрация", nil)
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	password := r.PostFormValue("password")
	if confirm := r.PostFormValue("confirm"); confirm != "" && confirm != password {
		h.redirectWithFlash(w, r, "/register", "Пароли не совпадают")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), r.PostFormValue("username"), r.PostFormValue("email"), password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.redirectWithFlash(w, r, "/register", "Пользователь с таким логином или email уже существует")
			return
		}
		if msg, ok := flashMessage(err); ok {
			h.redirectWithFlash(w, r, "/register", msg)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.sessions.SetAuthCookie(w, u.ID)
	h.redirectWithFlash(w, r, "/dashboard", "Регистрация прошла успешно")
}

// LoginForm отображает форму входа.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := middleware.SafeNext(r.URL.Query().Get("next"), "")
	h.render(w, r, http.StatusOK, "login", "Вход", struct{ Next string }{next})
}

// Login выполняет аутентификацию пользователя и возвращает его на исходную страницу.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next := middleware.SafeNext(r.PostFormValue("next"), "")

	u, err := h.service.AuthenticateUser(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.redirectWithFlash(w, r, middleware.LoginURL(next), "Неверный логин или пароль")
			return
		}
		h.fail(w, r, err)
		return
	}

	h.sessions.SetAuthCookie(w, u.ID)

	if next == "" {
		next = "/dashboard"
		if u.Role == model.RoleAdmin || u.Role == model.RoleManager {
			next = "/admin"
		}
	}
	h.redirectWithFlash(w, r, next, fmt.Sprintf("Добро пожаловать, %s!", u.Username))
}

// Logout завершает сессию пользователя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearAuthCookie(w)
	h.redirectWithFlash(w, r, "/", "Вы вышли из системы")
}
