package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/repository"
)

type demoUser struct {
	username, email, password string
	role                      model.Role
}

var demoUsers = []demoUser{
	{"admin", "admin@example.com", "AdminPass123", model.RoleAdmin},
	{"manager", "manager@example.com", "ManagerPass123", model.RoleManager},
	{"student", "student@witte.edu.ru", "Student123", model.RoleClient},
}

var demoTariffs = []struct {
	name, description string
	price             int64
}{
	{"Очная (бакалавриат)", "Оплата семестра очной формы обучения", 120000},
	{"Заочная (бакалавриат)", "Оплата семестра заочной формы обучения", 70000},
	{"Магистратура (очная)", "Оплата семестра магистратуры", 150000},
	{"Колледж (очная)", "Оплата семестра колледжа", 65000},
}

// Seed создаёт демонстрационных пользователей и тарифы, если их ещё нет.
func (s *Service) Seed(ctx context.Context) error {
	for _, du := range demoUsers {
		_, err := s.repo.GetUserByUsername(ctx, du.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("seed user %s: %w", du.username, err)
		}
		if _, err := s.createUser(ctx, du.username, du.email, du.password, du.role); err != nil && !errors.Is(err, repository.ErrUserExists) {
			return fmt.Errorf("seed user %s: %w", du.username, err)
		}
		s.logger.Info("demo user created", zap.String("username", du.username), zap.String("role", string(du.role)))
	}

	n, err := s.repo.CountTariffs(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, t := range demoTariffs {
		if _, err := s.repo.CreateTariff(ctx, t.name, t.description, decimal.NewFromInt(t.price)); err != nil {
			return fmt.Errorf("seed tariff %s: %w", t.name, err)
		}
	}
	s.logger.Info("demo tariffs created", zap.Int("count", len(demoTariffs)))

	return nil
}
