// Package model содержит доменные сущности портала оплаты обучения.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя портала.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleClient  Role = "client"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleClient:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя портала.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Tariff описывает программу обучения, доступную для оплаты.
type Tariff struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// PaymentStatus описывает состояние записи в журнале платежей.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment описывает одну попытку оплаты: от намерения до подтверждения.
// Поля FIO, Program, Amount и Currency фиксируются при создании и больше не меняются.
type Payment struct {
	ID         int64
	UserID     *int64
	FIO        string
	Program    string
	Amount     decimal.Decimal
	Currency   string
	Status     PaymentStatus
	SessionID  *string
	ReceiptRef *string
	CreatedAt  time.Time
	PaidAt     *time.Time
}

// IsPaid сообщает, подтверждён ли платёж.
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// OwnedBy сообщает, принадлежит ли платёж указанному пользователю.
func (p *Payment) OwnedBy(userID int64) bool {
	return p.UserID != nil && *p.UserID == userID
}

// Contact описывает сообщение, отправленное через форму обратной связи.
type Contact struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

// DocumentKind описывает тип сформированного документа.
type DocumentKind string

const (
	DocumentReceipt    DocumentKind = "receipt"
	DocumentReportDOCX DocumentKind = "report_docx"
	DocumentExportXLSX DocumentKind = "export_xlsx"
	DocumentExportCSV  DocumentKind = "export_csv"
)

// Document описывает запись о сформированном документе.
type Document struct {
	ID        int64
	Kind      DocumentKind
	Name      string
	PaymentID *int64
	CreatedAt time.Time
}

// Stats содержит сводку по журналу платежей.
type Stats struct {
	TotalCount int64
	PaidCount  int64
	PaidSum    decimal.Decimal
}

// ToMinor переводит сумму в копейки.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinor переводит сумму в копейках в рубли.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
