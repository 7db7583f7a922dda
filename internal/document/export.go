package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

const paymentsSheet = "Платежи"

var paymentsHeader = []string{"ID", "Пользователь", "ФИО", "Программа", "Сумма", "Валюта", "Статус", "Сессия", "Создан", "Оплачен"}

func paymentRecord(p model.Payment) []string {
	userID := ""
	if p.UserID != nil {
		userID = strconv.FormatInt(*p.UserID, 10)
	}
	sessionID := ""
	if p.SessionID != nil {
		sessionID = *p.SessionID
	}
	paidAt := ""
	if p.PaidAt != nil {
		paidAt = p.PaidAt.Format("2006-01-02 15:04:05")
	}

	return []string{
		strconv.FormatInt(p.ID, 10),
		userID,
		p.FIO,
		p.Program,
		p.Amount.StringFixed(2),
		p.Currency,
		string(p.Status),
		sessionID,
		p.CreatedAt.Format("2006-01-02 15:04:05"),
		paidAt,
	}
}

// PaymentsCSV выгружает журнал платежей в CSV с BOM для корректного открытия в Excel.
func PaymentsCSV(payments []model.Payment) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	if err := w.Write(paymentsHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range payments {
		if err := w.Write(paymentRecord(p)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// PaymentsXLSX выгружает журнал платежей в книгу Excel.
func PaymentsXLSX(payments []model.Payment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(paymentsHeader))
	for i, h := range paymentsHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(paymentsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, p := range payments {
		rec := paymentRecord(p)
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		// Сумма пишется числом, чтобы по колонке работали формулы.
		row[4] = p.Amount.InexactFloat64()

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(paymentsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", p.ID, err)
		}
	}

	if err := f.SetColWidth(paymentsSheet, "C", "D", 30); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
