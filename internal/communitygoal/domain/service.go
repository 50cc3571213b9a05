package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Status reports the goal snapshot for the current calendar month.
	Status(ctx context.Context, phase string) (*Status, error)
	// StatusAt reports the goal snapshot for the calendar month containing
	// the given instant.
	StatusAt(ctx context.Context, phase string, at time.Time) (*Status, error)
}

var ErrInvalidPhase = errors.New("invalid_phase")
