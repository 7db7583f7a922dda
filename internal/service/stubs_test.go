package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuition-portal/internal/gateway"
	"github.com/mmeshcher/tuition-portal/internal/mailer"
	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/storage"
)

type logEntry struct {
	event     string
	paymentID *int64
	details   string
}

// stubRepo хранит данные в памяти и повторяет условные переходы статусов PostgresRepository.
type stubRepo struct {
	mu sync.Mutex

	users     map[int64]*model.User
	tariffs   map[int64]*model.Tariff
	payments  map[int64]*model.Payment
	contacts  []model.Contact
	documents []model.Document
	logs      []logEntry
	nextID    int64

	failCreatePayment error
	failMarkPaid      error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:    map[int64]*model.User{},
		tariffs:  map[int64]*model.Tariff{},
		payments: map[int64]*model.Payment{},
	}
}

func (s *stubRepo) id() int64 {
	s.nextID++
	return s.nextID
}

func clonePayment(p *model.Payment) *model.Payment {
	c := *p
	return &c
}

func (s *stubRepo) Ping(ctx context.Context) error { return nil }
func (s *stubRepo) Close() error                   { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return 0, fmt.Errorf("%w: %s", repository.ErrUserExists, username)
		}
	}
	id := s.id()
	s.users[id] = &model.User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	return id, nil
}

func (s *stubRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []model.User
	for i := int64(1); i <= s.nextID; i++ {
		if u, ok := s.users[i]; ok {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (s *stubRepo) UpdateUserProfile(ctx context.Context, id int64, email string, passwordHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Email = email
	if passwordHash != nil {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (s *stubRepo) UpdateUserRole(ctx context.Context, id int64, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (s *stubRepo) ListTariffs(ctx context.Context) ([]model.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []model.Tariff
	for _, t := range s.tariffs {
		res = append(res, *t)
	}
	return res, nil
}

func (s *stubRepo) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tariffs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", repository.ErrTariffNotFound, id)
	}
	c := *t
	return &c, nil
}

func (s *stubRepo) CreateTariff(ctx context.Context, name, description string, price decimal.Decimal) (*model.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &model.Tariff{ID: s.id(), Name: name, Description: description, Price: price, CreatedAt: time.Now()}
	s.tariffs[t.ID] = t
	c := *t
	return &c, nil
}

func (s *stubRepo) UpdateTariff(ctx context.Context, id int64, name, description string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tariffs[id]
	if !ok {
		return repository.ErrTariffNotFound
	}
	t.Name, t.Description, t.Price = name, description, price
	return nil
}

func (s *stubRepo) DeleteTariff(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tariffs[id]; !ok {
		return repository.ErrTariffNotFound
	}
	delete(s.tariffs, id)
	return nil
}

func (s *stubRepo) CountTariffs(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.tariffs)), nil
}

func (s *stubRepo) CreatePayment(ctx context.Context, userID *int64, fio, program string, amount decimal.Decimal, currency string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreatePayment != nil {
		return nil, s.failCreatePayment
	}

	p := &model.Payment{
		ID:        s.id(),
		UserID:    userID,
		FIO:       fio,
		Program:   program,
		Amount:    amount,
		Currency:  currency,
		Status:    model.PaymentStatusPending,
		CreatedAt: time.Now(),
	}
	s.payments[p.ID] = p
	return clonePayment(p), nil
}

func (s *stubRepo) AttachSession(ctx context.Context, paymentID int64, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok || p.SessionID != nil {
		return repository.ErrPaymentNotFound
	}
	for _, other := range s.payments {
		if other.SessionID != nil && *other.SessionID == sessionID {
			return errors.New("duplicate session id")
		}
	}
	sid := sessionID
	p.SessionID = &sid
	return nil
}

func (s *stubRepo) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", repository.ErrPaymentNotFound, id)
	}
	return clonePayment(p), nil
}

func (s *stubRepo) bySession(sessionID string) *model.Payment {
	for _, p := range s.payments {
		if p.SessionID != nil && *p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

func (s *stubRepo) GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.bySession(sessionID)
	if p == nil {
		return nil, repository.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (s *stubRepo) MarkPaidBySession(ctx context.Context, sessionID string) (*model.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMarkPaid != nil {
		return nil, false, s.failMarkPaid
	}

	p := s.bySession(sessionID)
	if p == nil || p.Status != model.PaymentStatusPending {
		return nil, false, nil
	}
	now := time.Now()
	p.Status = model.PaymentStatusPaid
	p.PaidAt = &now
	return clonePayment(p), true, nil
}

func (s *stubRepo) MarkCancelledBySession(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.bySession(sessionID)
	if p == nil || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCancelled
	return true, nil
}

func (s *stubRepo) SetReceiptRef(ctx context.Context, paymentID int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok || !p.IsPaid() {
		return repository.ErrPaymentNotPaid
	}
	r := ref
	p.ReceiptRef = &r
	return nil
}

func (s *stubRepo) ListPaymentsByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []model.Payment
	for i := s.nextID; i > 0; i-- {
		if p, ok := s.payments[i]; ok && p.OwnedBy(userID) {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (s *stubRepo) ListPayments(ctx context.Context) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []model.Payment
	for i := s.nextID; i > 0; i-- {
		if p, ok := s.payments[i]; ok {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (s *stubRepo) GetStats(ctx context.Context) (*model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &model.Stats{PaidSum: decimal.Zero}
	for _, p := range s.payments {
		st.TotalCount++
		if p.IsPaid() {
			st.PaidCount++
			st.PaidSum = st.PaidSum.Add(p.Amount)
		}
	}
	return st, nil
}

func (s *stubRepo) DeletePayment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[id]; !ok {
		return repository.ErrPaymentNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *stubRepo) CreateContact(ctx context.Context, name, email, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts = append(s.contacts, model.Contact{ID: s.id(), Name: name, Email: email, Message: message})
	return nil
}

func (s *stubRepo) ListContacts(ctx context.Context) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Contact(nil), s.contacts...), nil
}

func (s *stubRepo) AddDocument(ctx context.Context, kind model.DocumentKind, name string, paymentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = append(s.documents, model.Document{ID: s.id(), Kind: kind, Name: name, PaymentID: paymentID})
	return nil
}

func (s *stubRepo) ListDocuments(ctx context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Document(nil), s.documents...), nil
}

func (s *stubRepo) AddLog(ctx context.Context, event string, paymentID *int64, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, logEntry{event: event, paymentID: paymentID, details: details})
	return nil
}

func (s *stubRepo) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// stubGateway принимает подпись "valid" и полезную нагрузку вида "completed:<session>".
type stubGateway struct {
	mu        sync.Mutex
	createErr error
	created   []gateway.SessionRequest
	seq       int
}

func (g *stubGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	g.created = append(g.created, req)
	id := fmt.Sprintf("cs_test_%d", g.seq)
	return &gateway.Session{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *stubGateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	if signature != "valid" {
		return nil, gateway.ErrInvalidSignature
	}
	kind, sid, _ := strings.Cut(string(payload), ":")
	ev := &gateway.Event{ID: "evt_" + sid, SessionID: sid}
	switch kind {
	case "completed":
		ev.Type = gateway.EventSessionCompleted
	case "expired":
		ev.Type = gateway.EventSessionExpired
	default:
		ev.Type = gateway.EventOther
	}
	return ev, nil
}

func (g *stubGateway) PublicKey() string { return "pk_test_stub" }

type memStore struct {
	mu   sync.Mutex
	puts int
	objs map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{objs: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.puts++
	m.objs[name] = data
	return nil
}

func (m *memStore) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type countingReceipts struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingReceipts) Emit(ctx context.Context, p *model.Payment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return ReceiptName(p.ID), nil
}
