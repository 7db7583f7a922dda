package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

const paymentColumns = `id, user_id, fio, program, amount_minor, currency, status,
	external_session_id, receipt_ref, created_at, paid_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p           model.Payment
		amountMinor int64
		status      string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.FIO, &p.Program, &amountMinor, &p.Currency, &status,
		&p.SessionID, &p.ReceiptRef, &p.CreatedAt, &p.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	p.Amount = model.FromMinor(amountMinor)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

func (r *PostgresRepository) queryPayments(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payments, nil
}

// CreatePayment записывает намерение оплаты в статусе pending.
// Сумма, программа и ФИО фиксируются в строке и не зависят от последующих правок тарифа.
func (r *PostgresRepository) CreatePayment(ctx context.Context, userID *int64, fio, program string, amount decimal.Decimal, currency string) (*model.Payment, error) {
	var p *model.Payment
	err := withRetry(ctx, func() error {
		var err error
		p, err = scanPayment(r.pool.QueryRow(ctx,
			`INSERT INTO payments (user_id, fio, program, amount_minor, currency, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+paymentColumns,
			userID, fio, program, model.ToMinor(amount), currency, string(model.PaymentStatusPending),
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

// AttachSession сохраняет идентификатор внешней сессии. Идентификатор устанавливается один раз.
func (r *PostgresRepository) AttachSession(ctx context.Context, paymentID int64, sessionID string) error {
	err := withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE payments SET external_session_id = $2
			 WHERE id = $1 AND external_session_id IS NULL`,
			paymentID, sessionID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", ErrPaymentNotFound, paymentID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	return nil
}

// GetPayment возвращает платёж по идентификатору.
func (r *PostgresRepository) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrPaymentNotFound, id)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// GetPaymentBySession возвращает платёж по идентификатору внешней сессии.
func (r *PostgresRepository) GetPaymentBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_session_id = $1`,
		sessionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", ErrPaymentNotFound, sessionID)
		}
		return nil, fmt.Errorf("get payment by session: %w", err)
	}
	return p, nil
}

// MarkPaidBySession переводит платёж из pending в paid одним условным UPDATE.
// Второй результат равен true только для вызова, который выполнил переход.
func (r *PostgresRepository) MarkPaidBySession(ctx context.Context, sessionID string) (*model.Payment, bool, error) {
	var p *model.Payment
	err := withRetry(ctx, func() error {
		var err error
		p, err = scanPayment(r.pool.QueryRow(ctx,
			`UPDATE payments SET status = $2, paid_at = now()
			 WHERE external_session_id = $1 AND status = $3
			 RETURNING `+paymentColumns,
			sessionID, string(model.PaymentStatusPaid), string(model.PaymentStatusPending),
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mark paid: %w", err)
	}
	return p, true, nil
}

// MarkCancelledBySession переводит платёж из pending в cancelled. Оплаченные платежи не меняются.
func (r *PostgresRepository) MarkCancelledBySession(ctx context.Context, sessionID string) (bool, error) {
	var affected int64
	err := withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE payments SET status = $2
			 WHERE external_session_id = $1 AND status = $3`,
			sessionID, string(model.PaymentStatusCancelled), string(model.PaymentStatusPending),
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	return affected == 1, nil
}

// SetReceiptRef сохраняет ссылку на квитанцию. Допускается только для оплаченного платежа.
func (r *PostgresRepository) SetReceiptRef(ctx context.Context, paymentID int64, ref string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET receipt_ref = $2 WHERE id = $1 AND status = $3`,
		paymentID, ref, string(model.PaymentStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("set receipt ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrPaymentNotPaid, paymentID)
	}
	return nil
}

// ListPaymentsByUser возвращает платежи пользователя, начиная с новых.
func (r *PostgresRepository) ListPaymentsByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// ListPayments возвращает весь журнал платежей, начиная с новых.
func (r *PostgresRepository) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC, id DESC`,
	)
}

// GetStats возвращает сводку по журналу платежей.
func (r *PostgresRepository) GetStats(ctx context.Context) (*model.Stats, error) {
	var (
		s        model.Stats
		sumMinor int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = $1),
		        COALESCE(SUM(amount_minor) FILTER (WHERE status = $1), 0)::BIGINT
		 FROM payments`,
		string(model.PaymentStatusPaid),
	).Scan(&s.TotalCount, &s.PaidCount, &sumMinor)
	if err != nil {
		return nil, fmt.Errorf("payment stats: %w", err)
	}
	s.PaidSum = model.FromMinor(sumMinor)
	return &s, nil
}

// DeletePayment удаляет платёж. Используется только администратором.
func (r *PostgresRepository) DeletePayment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrPaymentNotFound, id)
	}
	return nil
}
