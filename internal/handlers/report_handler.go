package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// AttemptReport
// @Router /reports/attempts [get]
func (h *ReportHandler) AttemptReport(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	rows, err := h.reportService.TeacherReport(c.Request.Context(), user, h.parseAttemptFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: rows, Total: len(rows)})
}

// SubjectSummary
// @Router /reports/subjects [get]
func (h *ReportHandler) SubjectSummary(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	summaries, err := h.reportService.SubjectSummary(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: summaries, Total: len(summaries)})
}

// MyHistory returns the caller's own attempts with aggregates
// @Router /reports/me [get]
func (h *ReportHandler) MyHistory(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	history, err := h.reportService.StudentHistory(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ExportAttempts downloads the attempt report as an xlsx workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /reports/attempts/export [get]
func (h *ReportHandler) ExportAttempts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting attempt report")

	// Buffered so a failed export still gets a JSON error
	var buf bytes.Buffer
	if err := h.reportService.ExportAttempts(c.Request.Context(), user, h.parseAttemptFilters(c), &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("attempts-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
