package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acadly/timetable-api/internal/models"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
	"github.com/acadly/timetable-api/pkg/export"
)

// ExportFormat selects the rendering backend for a timetable download.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult bundles rendered bytes with HTTP metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type timetableReader interface {
	ListByProfessor(ctx context.Context, professor string) ([]models.Assignment, error)
	ListByGroup(ctx context.Context, groupNo int) ([]models.Assignment, error)
}

// ExportService renders professor and group timetables for download.
type ExportService struct {
	assignments timetableReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs an export service.
func NewExportService(assignments timetableReader, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{assignments: assignments, csv: csv, pdf: pdf, logger: logger}
}

// ProfessorTimetable renders a professor's schedule in the requested format.
func (s *ExportService) ProfessorTimetable(ctx context.Context, professor string, format ExportFormat) (*ExportResult, error) {
	assignments, err := s.assignments.ListByProfessor(ctx, professor)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Timetable - %s", professor)
	base := fmt.Sprintf("timetable-%s", professor)
	return s.render(timetableDataset(assignments), title, base, format)
}

// GroupTimetable renders a group's schedule in the requested format.
func (s *ExportService) GroupTimetable(ctx context.Context, groupNo int, format ExportFormat) (*ExportResult, error) {
	assignments, err := s.assignments.ListByGroup(ctx, groupNo)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Timetable - Group %d", groupNo)
	base := fmt.Sprintf("timetable-group-%d", groupNo)
	return s.render(timetableDataset(assignments), title, base, format)
}

func (s *ExportService) render(data export.Dataset, title, baseName string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatCSV:
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{FileName: baseName + ".csv", ContentType: "text/csv", Data: payload}, nil
	case FormatPDF:
		payload, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{FileName: baseName + ".pdf", ContentType: "application/pdf", Data: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}
}

func timetableDataset(assignments []models.Assignment) export.Dataset {
	headers := []string{"Date", "Day", "Start", "End", "Subject", "Professor", "Group", "Room"}
	rows := make([]map[string]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, map[string]string{
			"Date":      a.Date,
			"Day":       a.Day,
			"Start":     a.StartTime,
			"End":       a.EndTime,
			"Subject":   a.Subject,
			"Professor": a.Professor,
			"Group":     fmt.Sprintf("%d", a.GroupNo),
			"Room":      a.RoomNo,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
