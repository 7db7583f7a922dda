// Package service реализует бизнес-логику портала оплаты обучения.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/tuition-portal/internal/gateway"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrGateway возвращается, если платёжный шлюз не создал сессию.
	ErrGateway = errors.New("payment gateway error")
	// ErrWebhookRejected возвращается для уведомлений, не прошедших проверку подписи.
	ErrWebhookRejected = errors.New("webhook rejected")
	// ErrNotPaid возвращается при попытке сформировать квитанцию для неоплаченного платежа.
	ErrNotPaid = errors.New("payment is not paid")
	// ErrReceiptNotReady возвращается, если квитанция ещё не сформирована.
	ErrReceiptNotReady = errors.New("receipt is not ready")
)

const minPasswordLength = 6

// ReceiptRepository описывает данные, нужные для выпуска квитанций.
type ReceiptRepository interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	SetReceiptRef(ctx context.Context, paymentID int64, ref string) error
	AddDocument(ctx context.Context, kind model.DocumentKind, name string, paymentID *int64) error
	AddLog(ctx context.Context, event string, paymentID *int64, details string) error
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	ReceiptRepository

	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserProfile(ctx context.Context, id int64, email string, passwordHash []byte) error
	UpdateUserRole(ctx context.Context, id int64, role model.Role) error

	ListTariffs(ctx context.Context) ([]model.Tariff, error)
	GetTariff(ctx context.Context, id int64) (*model.Tariff, error)
	CreateTariff(ctx context.Context, name, description string, price decimal.Decimal) (*model.Tariff, error)
	UpdateTariff(ctx context.Context, id int64, name, description string, price decimal.Decimal) error
	DeleteTariff(ctx context.Context, id int64) error
	CountTariffs(ctx context.Context) (int64, error)

	CreatePayment(ctx context.Context, userID *int64, fio, program string, amount decimal.Decimal, currency string) (*model.Payment, error)
	AttachSession(ctx context.Context, paymentID int64, sessionID string) error
	GetPayment(ctx context.Context, id int64) (*model.Payment, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error)
	MarkPaidBySession(ctx context.Context, sessionID string) (*model.Payment, bool, error)
	MarkCancelledBySession(ctx context.Context, sessionID string) (bool, error)
	ListPaymentsByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	GetStats(ctx context.Context) (*model.Stats, error)
	DeletePayment(ctx context.Context, id int64) error

	CreateContact(ctx context.Context, name, email, message string) error
	ListContacts(ctx context.Context) ([]model.Contact, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

// Gateway описывает внешний платёжный шлюз.
type Gateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
	ParseWebhook(payload []byte, signature string) (*gateway.Event, error)
	PublicKey() string
}

// Receipts выпускает квитанцию для оплаченного платежа и возвращает ссылку на неё.
type Receipts interface {
	Emit(ctx context.Context, p *model.Payment) (string, error)
}

// ObjectStore хранит сформированные документы.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// Options содержит параметры сервиса.
type Options struct {
	Currency       string
	BaseURL        string
	GatewayTimeout time.Duration
	ReceiptTimeout time.Duration
}

// Service содержит бизнес-логику портала.
type Service struct {
	repo     Repository
	gateway  Gateway
	receipts Receipts
	store    ObjectStore
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создаёт новый сервис.
func NewService(repo Repository, gw Gateway, receipts Receipts, store ObjectStore, opts Options, logger *zap.Logger) *Service {
	if opts.Currency == "" {
		opts.Currency = "rub"
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Service{
		repo:     repo,
		gateway:  gw,
		receipts: receipts,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Health проверяет доступность хранилища.
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// RegisterUser регистрирует нового пользователя с ролью client.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validation.First(
		validation.Required("username", username),
		validation.Email("email", email),
		validation.MinLength("password", password, minPasswordLength),
	); err != nil {
		return nil, err
	}

	return s.createUser(ctx, username, email, password, model.RoleClient)
}

func (s *Service) createUser(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, username, email, hash, role)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}, nil
}

// AuthenticateUser проверяет логин и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile меняет email и, если указан, пароль пользователя.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, email, newPassword string) error {
	email = strings.TrimSpace(email)
	if err := validation.Email("email", email); err != nil {
		return err
	}

	var hash []byte
	if newPassword != "" {
		if err := validation.MinLength("password", newPassword, minPasswordLength); err != nil {
			return err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	return s.repo.UpdateUserProfile(ctx, userID, email, hash)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetUserRole назначает пользователю роль.
func (s *Service) SetUserRole(ctx context.Context, userID int64, role string) error {
	r := model.Role(strings.TrimSpace(role))
	if !r.Valid() {
		return &validation.Error{Field: "role", Reason: "неизвестная роль"}
	}
	return s.repo.UpdateUserRole(ctx, userID, r)
}
