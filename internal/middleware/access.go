package middleware

import (
	"net/http"
	"net/url"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

// Requirement описывает права, необходимые для операции.
// Пустой список ролей означает любого вошедшего пользователя.
type Requirement struct {
	roles []model.Role
}

// Authenticated требует только входа в систему.
func Authenticated() Requirement {
	return Requirement{}
}

// Roles требует одну из перечисленных ролей.
func Roles(roles ...model.Role) Requirement {
	return Requirement{roles: roles}
}

// Decision описывает результат проверки доступа.
type Decision int

const (
	Allow Decision = iota
	Login
	Forbidden
)

// Authorize решает, допускается ли пользователь к операции с указанным требованием.
func Authorize(id *Identity, req Requirement) Decision {
	if id == nil {
		return Login
	}
	if len(req.roles) == 0 || id.Is(req.roles...) {
		return Allow
	}
	return Forbidden
}

// Gate применяет Authorize к маршрутам.
type Gate struct {
	onForbidden http.Handler
}

// NewGate создаёт Gate. onForbidden отвечает на запросы без нужной роли.
func NewGate(onForbidden http.Handler) *Gate {
	if onForbidden == nil {
		onForbidden = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
	return &Gate{onForbidden: onForbidden}
}

// Require возвращает middleware, пропускающий только запросы, удовлетворяющие req.
// Анонимный запрос перенаправляется на страницу входа с возвратом на исходный адрес.
func (g *Gate) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())

			switch Authorize(id, req) {
			case Allow:
				next.ServeHTTP(w, r)
			case Login:
				http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			default:
				g.onForbidden.ServeHTTP(w, r)
			}
		})
	}
}

// LoginURL возвращает адрес страницы входа с параметром next.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeNext возвращает next, если это локальный путь, иначе fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
