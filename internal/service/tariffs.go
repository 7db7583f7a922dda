package service

import (
	"context"
	"strings"

	"github.com/mmeshcher/tuition-portal/internal/model"
	"github.com/mmeshcher/tuition-portal/internal/validation"
)

// TariffInput содержит поля формы тарифа в исходном виде.
type TariffInput struct {
	Name        string
	Description string
	Price       string
}

// ListTariffs возвращает каталог тарифов, начиная с самого дорогого.
func (s *Service) ListTariffs(ctx context.Context) ([]model.Tariff, error) {
	return s.repo.ListTariffs(ctx)
}

// GetTariff возвращает тариф по идентификатору.
func (s *Service) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	return s.repo.GetTariff(ctx, id)
}

// CreateTariff добавляет тариф в каталог.
func (s *Service) CreateTariff(ctx context.Context, in TariffInput) (*model.Tariff, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.Required("title", name); err != nil {
		return nil, err
	}
	price, err := validation.PositiveAmount("price", in.Price)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateTariff(ctx, name, strings.TrimSpace(in.Description), price)
}

// UpdateTariff меняет тариф. Платежи, созданные ранее, сохраняют свой снимок цены и названия.
func (s *Service) UpdateTariff(ctx context.Context, id int64, in TariffInput) error {
	name := strings.TrimSpace(in.Name)
	if err := validation.Required("title", name); err != nil {
		return err
	}
	price, err := validation.PositiveAmount("price", in.Price)
	if err != nil {
		return err
	}
	return s.repo.UpdateTariff(ctx, id, name, strings.TrimSpace(in.Description), price)
}

// DeleteTariff удаляет тариф из каталога.
func (s *Service) DeleteTariff(ctx context.Context, id int64) error {
	return s.repo.DeleteTariff(ctx, id)
}
