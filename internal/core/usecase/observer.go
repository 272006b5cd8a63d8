package usecase

import "time"

// Observer receives pipeline outcomes. Stage names are short and stable so
// they can be used as metric labels.
type Observer interface {
	IngestCompleted(mediaType string, chunks, embedded int, elapsed time.Duration)
	IngestFailed(stage string)
	QueryCompleted(retrieved int, elapsed time.Duration)
	QueryFailed(stage string)
}

type NopObserver struct{}

func (NopObserver) IngestCompleted(string, int, int, time.Duration) {}
func (NopObserver) IngestFailed(string)                             {}
func (NopObserver) QueryCompleted(int, time.Duration)               {}
func (NopObserver) QueryFailed(string)                              {}
