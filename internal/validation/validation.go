// Package validation содержит функции валидации входных данных форм.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrInvalid сопоставляется с любой ошибкой валидации через errors.Is.
var ErrInvalid = errors.New("validation failed")

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Error описывает ошибку в конкретном поле формы.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is позволяет сравнивать ошибку с ErrInvalid.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// IsValidEmail проверяет формат адреса электронной почты.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Required возвращает ошибку, если значение поля пустое.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Reason: "обязательное поле"}
	}
	return nil
}

// Email проверяет обязательный адрес электронной почты.
func Email(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	if !IsValidEmail(value) {
		return &Error{Field: field, Reason: "неверный формат адреса"}
	}
	return nil
}

// MaxAmount ограничивает сумму сверху, чтобы значение в копейках
// гарантированно помещалось в int64.
var MaxAmount = decimal.New(1, 10).Sub(decimal.New(1, -2))

// PositiveAmount разбирает сумму и проверяет, что она больше нуля.
// Допускается запятая в качестве десятичного разделителя.
func PositiveAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return decimal.Zero, &Error{Field: field, Reason: "обязательное поле"}
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &Error{Field: field, Reason: "сумма должна быть числом"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &Error{Field: field, Reason: "сумма должна быть больше нуля"}
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, &Error{Field: field, Reason: "не больше двух знаков после запятой"}
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, &Error{Field: field, Reason: "слишком большая сумма"}
	}
	return amount, nil
}

// MinLength проверяет, что значение не короче min символов.
func MinLength(field, value string, min int) error {
	if utf8.RuneCountInString(value) < min {
		return &Error{Field: field, Reason: fmt.Sprintf("не короче %d символов", min)}
	}
	return nil
}

// First возвращает первую ненулевую ошибку из списка.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
