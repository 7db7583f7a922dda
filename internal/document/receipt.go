// Package document формирует квитанции и отчёты по журналу платежей.
package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const receiptFontFamily = "receipt"

// ReceiptData содержит данные, печатаемые в квитанции.
type ReceiptData struct {
	PaymentID int64
	FIO       string
	Program   string
	Amount    decimal.Decimal
	Currency  string
	PaidAt    time.Time
	IssuedAt  time.Time
}

type receiptLabels struct {
	title, number, payer, program, amount, paidAt, issuedAt, footer string
}

var (
	labelsRU = receiptLabels{
		title:    "Квитанция об оплате обучения",
		number:   "Номер платежа",
		payer:    "Плательщик",
		program:  "Программа",
		amount:   "Сумма",
		paidAt:   "Дата оплаты",
		issuedAt: "Дата выдачи",
		footer:   "Московский университет им. С.Ю. Витте",
	}
	labelsEN = receiptLabels{
		title:    "Tuition payment receipt",
		number:   "Payment no.",
		payer:    "Payer",
		program:  "Program",
		amount:   "Amount",
		paidAt:   "Paid at",
		issuedAt: "Issued at",
		footer:   "Moscow Witte University",
	}
)

// RenderReceipt формирует PDF-квитанцию.
// Если fontPath пуст, используется встроенный шрифт и кириллица транслитерируется.
func RenderReceipt(data ReceiptData, fontPath string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")

	labels := labelsRU
	family := receiptFontFamily
	text := func(s string) string { return s }

	if fontPath != "" {
		pdf.AddUTF8Font(family, "", fontPath)
	} else {
		labels = labelsEN
		family = "Helvetica"
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		text = func(s string) string { return tr(Transliterate(s)) }
	}

	pdf.SetTitle(text(labels.title), true)
	pdf.AddPage()

	pdf.SetFont(family, "", 18)
	pdf.CellFormat(0, 12, text(labels.title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{labels.number, fmt.Sprintf("%d", data.PaymentID)},
		{labels.payer, orDash(data.FIO)},
		{labels.program, data.Program},
		{labels.amount, data.Amount.StringFixed(2) + " " + strings.ToUpper(data.Currency)},
		{labels.paidAt, formatTime(data.PaidAt)},
		{labels.issuedAt, formatTime(data.IssuedAt)},
	}

	pdf.SetFont(family, "", 12)
	for _, row := range rows {
		pdf.CellFormat(55, 9, text(row[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 9, text(row[1]), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(12)
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 6, text(labels.footer), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
