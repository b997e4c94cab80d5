package handlers

import (
	"time"

	"product-media/internal/derive"
	"product-media/internal/progress"
	"product-media/internal/records"
	"product-media/internal/startup"
)

type Handlers struct {
	records        *records.Store
	pipeline       *derive.Pipeline
	tracker        *progress.Tracker
	maxUploadBytes int64
	startTime      time.Time
}

func New(store *records.Store, pipeline *derive.Pipeline, tracker *progress.Tracker, config *startup.Config) *Handlers {
	return &Handlers{
		records:        store,
		pipeline:       pipeline,
		tracker:        tracker,
		maxUploadBytes: config.MaxUploadBytes,
		startTime:      time.Now(),
	}
}
