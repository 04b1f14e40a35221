package jobs

import (
	"context"
	"log"
	"time"

	"github.com/siraa-ai/siraa-backend/internal/retrieval"
)

// ReindexJob periodically rebuilds the property index from the catalog so
// listings pipeline updates become searchable without a restart.
type ReindexJob struct {
	index    *retrieval.PropertyIndex
	interval time.Duration
	stop     chan struct{}
}

// NewReindexJob creates a reindex job with the given interval.
func NewReindexJob(index *retrieval.PropertyIndex, interval time.Duration) *ReindexJob {
	return &ReindexJob{
		index:    index,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the background reindex loop.
func (j *ReindexJob) Start() {
	go j.run()
	log.Printf("🔄 Property reindex job started (every %s)", j.interval)
}

// Stop halts the reindex loop.
func (j *ReindexJob) Stop() {
	close(j.stop)
	log.Println("⏹️  Property reindex job stopped")
}

func (j *ReindexJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := j.index.Rebuild(ctx); err != nil {
				log.Printf("❌ Property reindex failed: %v", err)
			}
			cancel()
		}
	}
}
