package services

import (
	"errors"
	"fmt"

	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils/validation"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource already exists")
)

// invalidInput wraps a validator error as ErrInvalidInput
func invalidInput(err error) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, validation.Summary(err))
}

// lookupErr maps storage lookup misses onto ErrNotFound and keeps the original cause
func lookupErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, aggregation.ErrUserNotFound) || errors.Is(err, aggregation.ErrSubjectNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func weightOrDefault(w *float64, fallback float64) float64 {
	if w == nil {
		return fallback
	}
	return *w
}
