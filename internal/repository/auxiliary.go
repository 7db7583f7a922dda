package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

// CreateContact сохраняет сообщение из формы обратной связи.
func (r *PostgresRepository) CreateContact(ctx context.Context, name, email, message string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contacts (name, email, message) VALUES ($1, $2, $3)`,
		name, email, message,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// ListContacts возвращает сообщения обратной связи, начиная с новых.
func (r *PostgresRepository) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, message, created_at FROM contacts ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var res []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddDocument регистрирует сформированный документ.
func (r *PostgresRepository) AddDocument(ctx context.Context, kind model.DocumentKind, name string, paymentID *int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (kind, name, payment_id) VALUES ($1, $2, $3)`,
		string(kind), name, paymentID,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ListDocuments возвращает журнал сформированных документов.
func (r *PostgresRepository) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, name, payment_id, created_at FROM documents ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var res []model.Document
	for rows.Next() {
		var (
			d    model.Document
			kind string
		)
		if err := rows.Scan(&d.ID, &kind, &d.Name, &d.PaymentID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Kind = model.DocumentKind(kind)
		res = append(res, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddLog записывает событие в журнал приложения.
func (r *PostgresRepository) AddLog(ctx context.Context, event string, paymentID *int64, details string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO logs (event, payment_id, details) VALUES ($1, $2, $3)`,
		event, paymentID, details,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}
