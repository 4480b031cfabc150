// Package services defines the business logic for post ingestion, voice
// profile synthesis, content generation, and the feedback/learning loop.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidPlatform is returned when a platform value is outside the
	// supported set (instagram, twitter, linkedin).
	ErrInvalidPlatform = errors.New("unsupported platform")

	// ErrProfileNotFound indicates that no voice profile exists for the
	// requested user and platform.
	ErrProfileNotFound = errors.New("voice profile not found")

	// ErrProfileConflict is returned when a concurrent synthesis produced the
	// same next version first. The caller may retry against the new base.
	ErrProfileConflict = errors.New("profile version conflict")

	// ErrEmptyContext is returned when a generation request carries no
	// free-text context.
	ErrEmptyContext = errors.New("generation context is empty")

	// ErrInvalidContentType is returned when the requested content type is
	// outside {caption, hashtags, full}.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidVariationCount is returned when the requested variation count
	// is not in [1, MaxVariations].
	ErrInvalidVariationCount = errors.New("invalid variation count")

	// ErrContentNotFound indicates that the referenced generated content does
	// not exist or is not accessible to the current user.
	ErrContentNotFound = errors.New("generated content not found")

	// ErrInvalidRating is returned when a feedback rating is outside the
	// allowed set (thumbs_up, thumbs_down).
	ErrInvalidRating = errors.New("rating must be thumbs_up or thumbs_down")

	// ErrMetricsNotFound indicates that no learning pass has ever run for the
	// requested user and platform.
	ErrMetricsNotFound = errors.New("learning metrics not found")

	// ErrBackendUnavailable is returned when the text-generation backend
	// failed transiently for every requested variation.
	ErrBackendUnavailable = errors.New("generation backend unavailable")

	// ErrNoTargets is returned when a scrape request names no accounts.
	ErrNoTargets = errors.New("no scrape targets")
)
