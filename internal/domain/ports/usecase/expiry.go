package usecase

import (
	"context"
	"time"
)

// ExpiryReport summarises one expiry sweep.
type ExpiryReport struct {
	Warned     int `json:"warned"`
	Downgraded int `json:"downgraded"`
	Failed     int `json:"failed"`
}

// ExpiryRunner is what schedulers and the admin trigger need from the expiry job.
type ExpiryRunner interface {
	RunOnce(ctx context.Context, now time.Time) (ExpiryReport, error)
}
