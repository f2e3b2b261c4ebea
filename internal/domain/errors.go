package domain

import "errors"

var (
	ErrInsufficientData = errors.New("no videos matched the niche after all passes")
	ErrNoVisionInput    = errors.New("no downloadable thumbnails")
	ErrModelUnavailable = errors.New("model not configured or circuit open")
	ErrUnauthenticated  = errors.New("not authenticated")
)
