package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// SessionHandler drives the caller's single running test session
type SessionHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewSessionHandler(attemptService services.AttemptService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type StartSessionRequest struct {
	TestID string `json:"test_id" binding:"required"`
}

// StartSession starts a timed session on a test
// @Summary Start test session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body StartSessionRequest true "Test to take"
// @Success 201 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Starting test session", "test_id", req.TestID)

	resp, err := h.attemptService.Start(c.Request.Context(), req.TestID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetCurrentSession
// @Router /sessions/current [get]
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	h.withSession(c, h.attemptService.GetSession)
}

// SelectAnswer records or replaces the answer to one question
// @Router /sessions/current/answers [put]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SelectAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.attemptService.SelectAnswer(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Next(c *gin.Context) {
	h.withSession(c, h.attemptService.Next)
}

func (h *SessionHandler) Previous(c *gin.Context) {
	h.withSession(c, h.attemptService.Previous)
}

// Submit finalizes the session and returns the graded result
// @Router /sessions/current/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting test session")

	result, err := h.attemptService.Submit(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Abandon drops the session without recording an attempt
// @Router /sessions/current/abandon [post]
func (h *SessionHandler) Abandon(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session abandoned"})
}

type sessionCall func(ctx context.Context, actor *models.User) (*services.SessionResponse, error)

func (h *SessionHandler) withSession(c *gin.Context, call sessionCall) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := call(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
