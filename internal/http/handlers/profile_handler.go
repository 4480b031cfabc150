// Voice profile HTTP handlers.
//
// This file exposes REST endpoints for profile resources:
//   - POST /profiles/{platform}/synthesize  (build the next version)
//   - GET  /profiles/{platform}             (live version, optional default fallback)
//   - GET  /profiles/{platform}/versions/{version}
//
// Synthesis is first-writer-wins: when two calls race on the same next
// version, the loser gets a 409 and should re-read the live profile.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/services"
)

// SynthesizeProfile godoc
// @ID          synthesizeProfile
// @Summary     Synthesize a new profile version
// @Description Analyzes the user's stored posts (plus any pending feedback signal) and persists the next profile version for the platform.
// @Tags        Profiles
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       platform   path    string  true  "Platform"  Enums(instagram, twitter, linkedin)
//
// @Success     201  {object}  domain.VoiceProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Unsupported platform"
// @Failure     409  {object}  handlers.ErrorResponse  "Concurrent synthesis won"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/{platform}/synthesize [post]
func (h *Handlers) SynthesizeProfile(c *gin.Context) {
	platform, okP := pathPlatform(c)
	if !okP {
		return
	}

	profile, err := h.profileSvc.Synthesize(c.Request.Context(), userID(c), platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileConflict):
			fail(c, http.StatusConflict, ErrCodeConflict, "a newer profile version was created concurrently")
		case errors.Is(err, services.ErrInvalidPlatform):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSynthesisFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, profile)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the live voice profile
// @Description Returns the current profile version for the platform. With ?fallback=default, a neutral zero-confidence profile is returned instead of 404 when none has been synthesized yet.
// @Tags        Profiles
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       platform   path    string  true  "Platform"  Enums(instagram, twitter, linkedin)
// @Param       fallback   query   string  false "Set to 'default' to receive a neutral profile instead of 404"
//
// @Success     200  {object}  domain.VoiceProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Unsupported platform"
// @Failure     404  {object}  handlers.ErrorResponse  "No profile synthesized yet"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/{platform} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	platform, okP := pathPlatform(c)
	if !okP {
		return
	}
	fallback := c.Query("fallback") == "default"

	profile, err := h.profileSvc.Get(c.Request.Context(), userID(c), platform, fallback)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no voice profile synthesized for this platform yet")
		case errors.Is(err, services.ErrInvalidPlatform):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, profile)
}

// GetProfileVersion godoc
// @ID          getProfileVersion
// @Summary     Get a historical profile version
// @Description Returns one specific profile version. Old versions are retained for audit when newer ones are synthesized.
// @Tags        Profiles
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       platform   path    string  true  "Platform"  Enums(instagram, twitter, linkedin)
// @Param       version    path    string  true  "Profile version"  example(1.2.0)
//
// @Success     200  {object}  domain.VoiceProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Unsupported platform"
// @Failure     404  {object}  handlers.ErrorResponse  "Version not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/{platform}/versions/{version} [get]
func (h *Handlers) GetProfileVersion(c *gin.Context) {
	platform, okP := pathPlatform(c)
	if !okP {
		return
	}

	profile, err := h.profileSvc.GetVersion(c.Request.Context(), userID(c), platform, c.Param("version"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile version not found")
		case errors.Is(err, services.ErrInvalidPlatform):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, profile)
}
