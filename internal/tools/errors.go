package tools

import (
	"errors"

	"github.com/besplago/gamemaster/internal/rpg"
	"github.com/besplago/gamemaster/internal/strategy"
)

// Stable error codes surfaced in tool error payloads.
const (
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrNotInitialized   = "E_NOT_INITIALIZED"
	ErrWrongPhase       = "E_WRONG_PHASE"
	ErrNationNotFound   = "E_NATION_NOT_FOUND"
	ErrWorldNotFound    = "E_WORLD_NOT_FOUND"
	ErrNotFound         = "E_NOT_FOUND"
	ErrResolutionFailed = "E_RESOLUTION_FAILED"
	ErrRateLimit        = "E_RATE_LIMIT"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:       {},
	ErrNotInitialized:   {},
	ErrWrongPhase:       {},
	ErrNationNotFound:   {},
	ErrWorldNotFound:    {},
	ErrNotFound:         {},
	ErrResolutionFailed: {},
	ErrRateLimit:        {},
	ErrInternal:         {},
}

// IsKnownCode reports whether code belongs to the taxonomy. The empty code
// (success) counts as known.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// notFoundError marks lookups that missed, for records outside the strategy
// engine (characters, notes).
type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

// badRequestError marks caller mistakes that pass schema validation but fail
// deeper parsing (e.g. an unparseable dice expression).
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }

// codeForError maps engine errors to their stable code.
func codeForError(err error) string {
	var wrongPhase *strategy.WrongPhaseError
	var resolution *strategy.ResolutionError
	var notFound notFoundError
	var badRequest badRequestError
	var invalid rpg.ValidationError

	switch {
	case errors.As(err, &notFound):
		return ErrNotFound
	case errors.As(err, &badRequest):
		return ErrBadRequest
	case errors.As(err, &invalid):
		return ErrBadRequest
	case errors.Is(err, strategy.ErrNotInitialized):
		return ErrNotInitialized
	case errors.Is(err, strategy.ErrTurnNotFound):
		return ErrNotFound
	case errors.Is(err, strategy.ErrWorldNotFound):
		return ErrWorldNotFound
	case errors.Is(err, strategy.ErrNationNotFound):
		return ErrNationNotFound
	case errors.As(err, &wrongPhase):
		return ErrWrongPhase
	case errors.As(err, &resolution):
		return ErrResolutionFailed
	default:
		return ErrInternal
	}
}
