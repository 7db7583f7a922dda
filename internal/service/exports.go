package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuition-portal/internal/document"
	"github.com/mmeshcher/tuition-portal/internal/model"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

func (s *Service) exportName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", prefix, s.now().Format("20060102_150405"), uuid.New().String()[:8], ext)
}

func (s *Service) recordExport(ctx context.Context, kind model.DocumentKind, name string) {
	if err := s.repo.AddDocument(ctx, kind, name, nil); err != nil {
		s.logger.Warn("document journal write failed", zap.String("name", name), zap.Error(err))
	}
}

// ExportXLSX выгружает журнал платежей в Excel и сохраняет файл в хранилище.
func (s *Service) ExportXLSX(ctx context.Context) (*File, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, err
	}

	data, err := document.PaymentsXLSX(payments)
	if err != nil {
		return nil, err
	}

	name := s.exportName("payments", "xlsx")
	if err := s.store.Put(ctx, name, xlsxContentType, data); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	s.recordExport(ctx, model.DocumentExportXLSX, name)

	return &File{Name: name, ContentType: xlsxContentType, Data: data}, nil
}

// ExportCSV выгружает журнал платежей в CSV и сохраняет файл в хранилище.
func (s *Service) ExportCSV(ctx context.Context) (*File, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, err
	}

	data, err := document.PaymentsCSV(payments)
	if err != nil {
		return nil, err
	}

	name := s.exportName("payments", "csv")
	if err := s.store.Put(ctx, name, csvContentType, data); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	s.recordExport(ctx, model.DocumentExportCSV, name)

	return &File{Name: name, ContentType: csvContentType, Data: data}, nil
}

// ExportDOCX формирует сводный отчёт в Word и сохраняет его в хранилище.
func (s *Service) ExportDOCX(ctx context.Context) (*File, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, err
	}

	data, err := document.SummaryDOCX(*stats, payments, s.now())
	if err != nil {
		return nil, err
	}

	name := s.exportName("report", "docx")
	if err := s.store.Put(ctx, name, docxContentType, data); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	s.recordExport(ctx, model.DocumentReportDOCX, name)

	return &File{Name: name, ContentType: docxContentType, Data: data}, nil
}
