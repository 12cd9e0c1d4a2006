package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const (
	unknownTestTitle = "Unknown Test"
	exportSheetName  = "Attempts"
)

var exportHeader = []interface{}{
	"Attempt ID", "Test", "Subject", "Student", "Score", "Total",
	"Percentage", "Passed", "End Reason", "Time Spent (s)", "Completed At",
}

type reportService struct {
	repo         repositories.Repository
	cacheManager *cache.CacheManager
	logger       *slog.Logger
}

func NewReportService(repo repositories.Repository, cacheManager *cache.CacheManager, logger *slog.Logger) ReportService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &reportService{
		repo:         repo,
		cacheManager: cacheManager,
		logger:       logger,
	}
}

// TeacherReport lists every attempt matching filters with the test it was
// taken against. Attempts whose test was deleted keep a placeholder title.
func (s *reportService) TeacherReport(ctx context.Context, actor *models.User, filters repositories.AttemptFilters) ([]ReportRow, error) {
	if !canAuthor(actor) {
		return nil, NewPermissionError(actorID(actor), "", "report", "read", "insufficient role permissions")
	}

	attempts, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildRows(ctx, attempts)
}

func (s *reportService) StudentHistory(ctx context.Context, actor *models.User) (*StudentHistory, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{StudentID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	rows, err := s.buildRows(ctx, attempts)
	if err != nil {
		return nil, err
	}

	history := &StudentHistory{
		StudentID:     actor.ID,
		Attempts:      rows,
		TotalAttempts: len(rows),
	}

	if len(rows) > 0 {
		sum := 0
		for _, row := range rows {
			sum += row.Percentage
			if row.Passed {
				history.Passed++
			}
		}
		history.AveragePercentage = roundTo(float64(sum)/float64(len(rows)), 1)
	}

	return history, nil
}

// SubjectSummary aggregates attempts per subject. The result is cached until
// the next attempt or test change.
func (s *reportService) SubjectSummary(ctx context.Context, actor *models.User) ([]SubjectSummary, error) {
	if !canAuthor(actor) {
		return nil, NewPermissionError(actorID(actor), "", "report", "read", "insufficient role permissions")
	}

	var summaries []SubjectSummary
	err := s.cacheManager.Stats.CacheOrExecute(ctx, "subjects", &summaries, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{})
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}
		rows, err := s.buildRows(ctx, attempts)
		if err != nil {
			return nil, err
		}
		return summarizeBySubject(rows), nil
	})
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

// ExportAttempts writes the teacher report as a single-sheet xlsx workbook
func (s *reportService) ExportAttempts(ctx context.Context, actor *models.User, filters repositories.AttemptFilters, w io.Writer) error {
	rows, err := s.TeacherReport(ctx, actor, filters)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.AttemptID,
			row.TestTitle,
			row.Subject,
			row.StudentName,
			row.Score,
			row.TotalQuestions,
			row.Percentage,
			row.Passed,
			string(row.EndReason),
			row.TimeSpentSeconds,
			row.CompletedAt,
		}
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Attempts exported", "rows", len(rows), "user_id", actorID(actor))
	return nil
}

func (s *reportService) buildRows(ctx context.Context, attempts []*models.Attempt) ([]ReportRow, error) {
	tests, err := s.repo.Test().List(ctx, repositories.TestFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	byID := make(map[string]*models.Test, len(tests))
	for _, t := range tests {
		byID[t.ID] = t
	}

	rows := make([]ReportRow, 0, len(attempts))
	for _, a := range attempts {
		row := ReportRow{
			AttemptID:        a.ID,
			TestID:           a.TestID,
			TestTitle:        unknownTestTitle,
			StudentID:        a.StudentID,
			StudentName:      a.StudentName,
			Score:            a.Score,
			TotalQuestions:   a.TotalQuestions,
			Percentage:       a.Percentage(),
			Passed:           a.Passed(),
			EndReason:        a.EndReason,
			TimeSpentSeconds: a.TimeSpentSeconds,
			CompletedAt:      a.CompletedAt,
		}
		if t, ok := byID[a.TestID]; ok {
			row.TestTitle = t.Title
			row.Subject = t.Subject
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func summarizeBySubject(rows []ReportRow) []SubjectSummary {
	type acc struct {
		attempts, passed, percentage int
	}

	bySubject := make(map[string]*acc)
	for _, row := range rows {
		a, ok := bySubject[row.Subject]
		if !ok {
			a = &acc{}
			bySubject[row.Subject] = a
		}
		a.attempts++
		a.percentage += row.Percentage
		if row.Passed {
			a.passed++
		}
	}

	out := make([]SubjectSummary, 0, len(bySubject))
	for subject, a := range bySubject {
		out = append(out, SubjectSummary{
			Subject:           subject,
			Attempts:          a.attempts,
			AveragePercentage: roundTo(float64(a.percentage)/float64(a.attempts), 1),
			PassRate:          roundTo(float64(a.passed)*100/float64(a.attempts), 1),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

func roundTo(v float64, places int) float64 {
	pow := 1.0
	for i := 0; i < places; i++ {
		pow *= 10
	}
	return float64(int64(v*pow+0.5)) / pow
}
