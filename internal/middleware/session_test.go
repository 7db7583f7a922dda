package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

type stubUsers struct {
	users map[int64]*model.User
}

func (s *stubUsers) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: map[int64]*model.User{
		42: {ID: 42, Username: "student", Role: model.RoleClient},
	}}
}

func TestSessionMiddleware_WithValidCookie(t *testing.T) {
	m := NewSessionManager("test-secret", false)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if id.UserID != 42 || id.Role != model.RoleClient {
			t.Fatalf("identity = %+v, want user 42 with role client", id)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	m.SetAuthCookie(w, 42)
	resCookies := w.Result().Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(newStubUsers(), zap.NewNop())(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestSessionMiddleware_WithoutCookieIsAnonymous(t *testing.T) {
	m := NewSessionManager("test-secret", false)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("anonymous request must not carry identity")
		}
	})

	handler := m.Middleware(newStubUsers(), zap.NewNop())(next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestSessionMiddleware_WithTamperedCookie(t *testing.T) {
	m := NewSessionManager("test-secret", false)
	other := NewSessionManager("other-secret", false)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("cookie signed with another key must be ignored")
		}
	})

	w := httptest.NewRecorder()
	other.SetAuthCookie(w, 42)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(w.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	m.Middleware(newStubUsers(), zap.NewNop())(next).ServeHTTP(rec, r)

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("invalid session cookie must be cleared")
	}
}

func TestSessionMiddleware_DeletedUser(t *testing.T) {
	m := NewSessionManager("test-secret", false)

	w := httptest.NewRecorder()
	m.SetAuthCookie(w, 7)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(w.Result().Cookies()[0])

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("unknown user must be anonymous")
		}
	})
	m.Middleware(newStubUsers(), zap.NewNop())(next).ServeHTTP(httptest.NewRecorder(), r)
}

func TestFlash_RoundTrip(t *testing.T) {
	m := NewSessionManager("test-secret", false)

	w := httptest.NewRecorder()
	m.SetFlash(w, "Логин занят")

	r := httptest.NewRequest(http.MethodGet, "/register", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	if got := m.PopFlash(rec, r); got != "Логин занят" {
		t.Fatalf("flash = %q, want %q", got, "Логин занят")
	}

	if got := m.PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("flash without cookie = %q, want empty", got)
	}
}

func TestSignVerify(t *testing.T) {
	m := NewSessionManager("secret", false)

	value := m.sign("123")
	id, ok := m.verify(value)
	if !ok || id != 123 {
		t.Fatalf("verify(%q) = %d, %v; want 123, true", value, id, ok)
	}

	if _, ok := m.verify("123.deadbeef"); ok {
		t.Fatalf("verify must reject forged signature")
	}
	if _, ok := m.verify("garbage"); ok {
		t.Fatalf("verify must reject value without signature")
	}
}

func TestNewSessionManager_EmptySecret(t *testing.T) {
	a := NewSessionManager("", false)
	b := NewSessionManager("", false)

	if _, ok := b.verify(a.sign("1")); ok {
		t.Fatalf("random keys must differ between managers")
	}
}
