// Package middleware содержит HTTP middleware портала оплаты обучения.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	authCookieName  = "auth_token"
	authCookieTTL   = 7 * 24 * time.Hour
	flashCookieName = "flash"
)

// Identity описывает пользователя, выполняющего запрос.
type Identity struct {
	UserID   int64
	Username string
	Role     model.Role
}

// Is сообщает, имеет ли пользователь одну из ролей.
func (id *Identity) Is(roles ...model.Role) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// UserResolver загружает пользователя по идентификатору из cookie.
type UserResolver interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// SessionManager выдаёт и проверяет подписанные cookie сессии и flash-сообщений.
type SessionManager struct {
	secretKey []byte
	secure    bool
}

// NewSessionManager создаёт менеджер сессий с указанным секретным ключом.
// Пустой ключ заменяется случайным, и сессии не переживают перезапуск.
func NewSessionManager(secret string, secure bool) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionManager{
		secretKey: key,
		secure:    secure,
	}
}

// Middleware определяет пользователя по cookie один раз на запрос и кладёт Identity в контекст.
// Запрос без сессии или с недействительной сессией продолжается анонимно.
func (m *SessionManager) Middleware(users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(authCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := m.verify(cookie.Value)
			if !ok {
				m.ClearAuthCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetUser(r.Context(), userID)
			if err != nil {
				logger.Debug("session user not resolved", zap.Int64("user_id", userID), zap.Error(err))
				m.ClearAuthCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			id := &Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// SetAuthCookie устанавливает cookie сессии для указанного пользователя.
func (m *SessionManager) SetAuthCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    m.sign(strconv.FormatInt(userID, 10)),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie удаляет cookie сессии.
func (m *SessionManager) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFlash сохраняет сообщение для показа на следующей странице.
func (m *SessionManager) SetFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    m.sign(base64.RawURLEncoding.EncodeToString([]byte(message))),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash возвращает сохранённое сообщение и удаляет его.
func (m *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	payload, ok := m.open(cookie.Value)
	if !ok {
		return ""
	}
	msg, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	return string(msg)
}

func (m *SessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secretKey)
	mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

func (m *SessionManager) open(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 {
		return "", false
	}
	payload := value[:idx]

	expected := m.sign(payload)
	if !hmac.Equal([]byte(value), []byte(expected)) {
		return "", false
	}
	return payload, true
}

func (m *SessionManager) verify(cookieValue string) (int64, bool) {
	payload, ok := m.open(cookieValue)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// WithIdentity возвращает контекст с пользователем запроса.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext извлекает пользователя запроса из контекста.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}
