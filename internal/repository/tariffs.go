package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

const tariffColumns = `id, name, description, price_minor, created_at`

func scanTariff(row pgx.Row) (*model.Tariff, error) {
	var (
		t          model.Tariff
		priceMinor int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &priceMinor, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Price = model.FromMinor(priceMinor)
	return &t, nil
}

// ListTariffs возвращает тарифы, начиная с самого дорогого.
func (r *PostgresRepository) ListTariffs(ctx context.Context) ([]model.Tariff, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tariffColumns+` FROM tariffs ORDER BY price_minor DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []model.Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		tariffs = append(tariffs, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tariffs, nil
}

// GetTariff возвращает тариф по идентификатору.
func (r *PostgresRepository) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	t, err := scanTariff(r.pool.QueryRow(ctx,
		`SELECT `+tariffColumns+` FROM tariffs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrTariffNotFound, id)
		}
		return nil, fmt.Errorf("get tariff: %w", err)
	}
	return t, nil
}

// CreateTariff добавляет тариф в каталог.
func (r *PostgresRepository) CreateTariff(ctx context.Context, name, description string, price decimal.Decimal) (*model.Tariff, error) {
	t, err := scanTariff(r.pool.QueryRow(ctx,
		`INSERT INTO tariffs (name, description, price_minor) VALUES ($1, $2, $3)
		 RETURNING `+tariffColumns,
		name, description, model.ToMinor(price),
	))
	if err != nil {
		return nil, fmt.Errorf("create tariff: %w", err)
	}
	return t, nil
}

// UpdateTariff меняет тариф. Уже созданные платежи не затрагиваются.
func (r *PostgresRepository) UpdateTariff(ctx context.Context, id int64, name, description string, price decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tariffs SET name = $2, description = $3, price_minor = $4 WHERE id = $1`,
		id, name, description, model.ToMinor(price),
	)
	if err != nil {
		return fmt.Errorf("update tariff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrTariffNotFound, id)
	}
	return nil
}

// DeleteTariff удаляет тариф из каталога.
func (r *PostgresRepository) DeleteTariff(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tariffs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tariff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrTariffNotFound, id)
	}
	return nil
}

// CountTariffs возвращает число тарифов в каталоге.
func (r *PostgresRepository) CountTariffs(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tariffs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tariffs: %w", err)
	}
	return n, nil
}
