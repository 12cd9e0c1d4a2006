package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// ListAttempts lists finalized attempts, newest last
// @Summary List attempts
// @Description Students only see their own attempts
// @Tags attempts
// @Produce json
// @Param test_id query string false "Test filter"
// @Param student_id query string false "Student filter (authors only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ListResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListAttempts(c.Request.Context(), user, h.parseAttemptFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: attempts, Total: len(attempts)})
}

// GetAttempt
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetResult returns the graded review of an attempt
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFeedback returns advisory text. Generator failures degrade to a fixed message.
// @Router /attempts/{id}/feedback [get]
func (h *AttemptHandler) GetFeedback(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	feedback, err := h.attemptService.GetFeedback(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}
