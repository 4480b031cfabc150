// Learning HTTP handlers.
//
// This file exposes REST endpoints for the feedback-learning loop:
//   - POST /learning/{platform}/run  (process pending feedback, recompute metrics)
//   - GET  /learning/{platform}      (read the stored metrics)
//
// Running the pass is idempotent; feedback is consumed exactly once and the
// metrics are recomputed from scratch on every run.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/services"
)

// RunLearning godoc
// @ID          runLearning
// @Summary     Run a learning pass
// @Description Consumes pending feedback for the platform, recomputes learning metrics, and triggers a profile resynthesis when enough unapplied feedback has accumulated.
// @Tags        Learning
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       platform   path    string  true  "Platform"  Enums(instagram, twitter, linkedin)
//
// @Success     200  {object} domain.LearningMetrics
// @Failure     400  {object} handlers.ErrorResponse "Unsupported platform"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /learning/{platform}/run [post]
func (h *Handlers) RunLearning(c *gin.Context) {
	platform, okP := pathPlatform(c)
	if !okP {
		return
	}

	metrics, err := h.learningSvc.Run(c.Request.Context(), userID(c), platform)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPlatform) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLearningFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, metrics)
}

// GetLearning godoc
// @ID          getLearning
// @Summary     Get learning metrics
// @Description Returns the stored learning metrics for the platform. 404 until the first learning pass has run.
// @Tags        Learning
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       platform   path    string  true  "Platform"  Enums(instagram, twitter, linkedin)
//
// @Success     200  {object} domain.LearningMetrics
// @Failure     400  {object} handlers.ErrorResponse "Unsupported platform"
// @Failure     404  {object} handlers.ErrorResponse "No learning pass has run yet"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /learning/{platform} [get]
func (h *Handlers) GetLearning(c *gin.Context) {
	platform, okP := pathPlatform(c)
	if !okP {
		return
	}

	metrics, err := h.learningSvc.Get(c.Request.Context(), userID(c), platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMetricsNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no learning pass has run for this platform yet")
		case errors.Is(err, services.ErrInvalidPlatform):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, metrics)
}
