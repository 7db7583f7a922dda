package document

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gomutex/godocx"

	"github.com/mmeshcher/tuition-portal/internal/model"
)

var summaryHeader = []string{"№", "ФИО", "Программа", "Сумма", "Оплачен"}

// SummaryDOCX формирует сводный отчёт по платежам в формате Word.
// В таблицу попадают только оплаченные платежи.
func SummaryDOCX(stats model.Stats, payments []model.Payment, generatedAt time.Time) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("create docx: %w", err)
	}

	if _, err := doc.AddHeading("Отчёт по оплате обучения", 0); err != nil {
		return nil, fmt.Errorf("add heading: %w", err)
	}
	doc.AddParagraph("Сформирован: " + generatedAt.Format("02.01.2006 15:04"))

	p := doc.AddParagraph("Всего платежей: ")
	p.AddText(fmt.Sprintf("%d", stats.TotalCount)).Bold(true)
	p = doc.AddParagraph("Оплачено: ")
	p.AddText(fmt.Sprintf("%d", stats.PaidCount)).Bold(true)
	p = doc.AddParagraph("Сумма оплат: ")
	p.AddText(stats.PaidSum.StringFixed(2)).Bold(true)

	if _, err := doc.AddHeading("Оплаченные платежи", 1); err != nil {
		return nil, fmt.Errorf("add heading: %w", err)
	}

	table := doc.AddTable()
	table.Style("LightList-Accent1")

	header := table.AddRow()
	for _, h := range summaryHeader {
		header.AddCell().AddParagraph(h)
	}

	for _, p := range payments {
		if !p.IsPaid() {
			continue
		}
		paidAt := "-"
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format("02.01.2006")
		}

		row := table.AddRow()
		row.AddCell().AddParagraph(fmt.Sprintf("%d", p.ID))
		row.AddCell().AddParagraph(orDash(p.FIO))
		row.AddCell().AddParagraph(p.Program)
		row.AddCell().AddParagraph(p.Amount.StringFixed(2) + " " + strings.ToUpper(p.Currency))
		row.AddCell().AddParagraph(paidAt)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}
