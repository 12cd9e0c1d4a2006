package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// ListTests lists the tests visible to the caller
// @Summary List tests
// @Description Students see published tests; authors also see their drafts
// @Tags tests
// @Produce json
// @Param subject query string false "Subject filter"
// @Param mine query bool false "Only tests created by the caller"
// @Success 200 {object} ListResponse
// @Failure 401 {object} ErrorResponse
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var filters repositories.TestFilters
	if subject := c.Query("subject"); subject != "" {
		filters.Subject = &subject
	}
	if c.Query("mine") == "true" {
		filters.CreatedBy = &user.ID
	}

	tests, err := h.testService.List(c.Request.Context(), user, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: tests, Total: len(tests)})
}

// GetTest
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	test, err := h.testService.Get(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// CreateTest creates a test owned by the caller
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	h.LogRequest(c, "Creating test")

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.CreateTestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// UpdateTest
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	h.LogRequest(c, "Updating test", "test_id", c.Param("id"))

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateTestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	test, err := h.testService.Update(c.Request.Context(), c.Param("id"), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	h.LogRequest(c, "Deleting test", "test_id", c.Param("id"))

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), c.Param("id"), user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted successfully"})
}

func (h *TestHandler) PublishTest(c *gin.Context) {
	h.setPublished(c, true)
}

func (h *TestHandler) UnpublishTest(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *TestHandler) setPublished(c *gin.Context, published bool) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	test, err := h.testService.SetPublished(c.Request.Context(), c.Param("id"), published, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GenerateQuestions drafts questions with the generator. Nothing is saved.
// @Router /tests/generate [post]
func (h *TestHandler) GenerateQuestions(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.GenerateQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Generating questions", "topic", req.Topic, "count", req.Count)

	questions, err := h.testService.GenerateQuestions(c.Request.Context(), &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: questions, Total: len(questions)})
}
