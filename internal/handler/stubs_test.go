package handler

import (
	"context"
	"sync"

	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
)

type stubService struct {
	mu sync.Mutex

	healthErr error

	users map[int64]*model.User

	registerUser *model.User
	registerErr  error

	authUser *model.User
	authErr  error

	profileErr error

	roleCalls []int64

	tariffs []model.Tariff

	checkoutResp *service.CheckoutResult
	checkoutErr  error
	checkoutUser *int64
	checkoutFIO  string

	webhookOutcome service.WebhookOutcome
	webhookErr     error
	webhookSig     string

	payments []model.Payment

	receipt        *service.File
	receiptOwnerID int64

	contactErr error
	contacts   []model.Contact

	exportCalls int
}

func newStubService() *stubService {
	return &stubService{users: make(map[int64]*model.User)}
}

func (s *stubService) addUser(id int64, username string, role model.Role) {
	s.users[id] = &model.User{ID: id, Username: username, Email: username + "@example.com", Role: role}
}

func (s *stubService) Health(ctx context.Context) error { return s.healthErr }

func (s *stubService) RegisterUser(ctx context.Context, username, email, password string) (*model.User, error) {
	return s.registerUser, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *stubService) UpdateProfile(ctx context.Context, userID int64, email, newPassword string) error {
	return s.profileErr
}

func (s *stubService) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubService) SetUserRole(ctx context.Context, userID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleCalls = append(s.roleCalls, userID)
	return nil
}

func (s *stubService) ListTariffs(ctx context.Context) ([]model.Tariff, error) {
	return s.tariffs, nil
}

func (s *stubService) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	for i := range s.tariffs {
		if s.tariffs[i].ID == id {
			return &s.tariffs[i], nil
		}
	}
	return nil, repository.ErrTariffNotFound
}

func (s *stubService) CreateTariff(ctx context.Context, in service.TariffInput) (*model.Tariff, error) {
	return &model.Tariff{ID: 1, Name: in.Name}, nil
}

func (s *stubService) UpdateTariff(ctx context.Context, id int64, in service.TariffInput) error {
	return nil
}

func (s *stubService) DeleteTariff(ctx context.Context, id int64) error { return nil }

func (s *stubService) StartCheckout(ctx context.Context, tariffID int64, userID *int64, fio string) (*service.CheckoutResult, error) {
	s.checkoutUser = userID
	s.checkoutFIO = fio
	return s.checkoutResp, s.checkoutErr
}

func (s *stubService) HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookOutcome, error) {
	s.webhookSig = signature
	return s.webhookOutcome, s.webhookErr
}

func (s *stubService) GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	for i := range s.payments {
		if p := s.payments[i]; p.SessionID != nil && *p.SessionID == sessionID {
			return &p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (s *stubService) ListUserPayments(ctx context.Context, userID int64) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range s.payments {
		if p.OwnedBy(userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubService) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return s.payments, nil
}

func (s *stubService) DeletePayment(ctx context.Context, id int64) error { return nil }

func (s *stubService) Stats(ctx context.Context) (*model.Stats, error) {
	return &model.Stats{}, nil
}

func (s *stubService) RegenerateReceipt(ctx context.Context, paymentID int64) (string, error) {
	return service.ReceiptName(paymentID), nil
}

func (s *stubService) ReceiptFile(ctx context.Context, userID, paymentID int64) (*service.File, error) {
	if s.receipt == nil || userID != s.receiptOwnerID {
		return nil, repository.ErrPaymentNotFound
	}
	return s.receipt, nil
}

func (s *stubService) ReceiptFileBySession(ctx context.Context, sessionID string) (*service.File, error) {
	if s.receipt == nil {
		return nil, service.ErrReceiptNotReady
	}
	return s.receipt, nil
}

func (s *stubService) StaffReceiptFile(ctx context.Context, paymentID int64) (*service.File, error) {
	if s.receipt == nil {
		return nil, service.ErrReceiptNotReady
	}
	return s.receipt, nil
}

func (s *stubService) SubmitContact(ctx context.Context, name, email, message string) error {
	return s.contactErr
}

func (s *stubService) ListContacts(ctx context.Context) ([]model.Contact, error) {
	return s.contacts, nil
}

func (s *stubService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return nil, nil
}

func (s *stubService) export(name string) (*service.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportCalls++
	return &service.File{Name: name, ContentType: "application/octet-stream", Data: []byte("data")}, nil
}

func (s *stubService) ExportXLSX(ctx context.Context) (*service.File, error) {
	return s.export("payments.xlsx")
}

func (s *stubService) ExportCSV(ctx context.Context) (*service.File, error) {
	return s.export("payments.csv")
}

func (s *stubService) ExportDOCX(ctx context.Context) (*service.File, error) {
	return s.export("summary.docx")
}
