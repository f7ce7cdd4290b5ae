package handlers

import (
	"sync/atomic"
	"time"

	"photo-gallery/internal/database"
	"photo-gallery/internal/startup"
	"photo-gallery/internal/streaming"
	"photo-gallery/internal/variants"
)

// Handlers serves the gallery API over the album database and the variant
// service.
type Handlers struct {
	db        *database.Database
	variants  *variants.Service
	batch     variants.BatchOptions
	stream    streaming.Config
	startTime time.Time
	ready     atomic.Bool
}

// New wires handlers to their collaborators. pauser, when not nil, throttles
// preload batches under memory pressure.
func New(db *database.Database, svc *variants.Service, config *startup.Config, pauser variants.Pauser) *Handlers {
	batch := variants.DefaultBatchOptions()
	if config != nil {
		batch.Size = config.VariantBatchSize
		batch.Delay = config.VariantBatchDelay
	}
	batch.Pauser = pauser

	return &Handlers{
		db:        db,
		variants:  svc,
		batch:     batch,
		stream:    streaming.DefaultConfig(),
		startTime: time.Now(),
	}
}

// SetReady marks the service ready for traffic once startup has finished.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
