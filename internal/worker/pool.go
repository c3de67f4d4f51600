// Package worker provides background processing for listen events so the
// HTTP surface never blocks on preference updates or persistence.
package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job represents one playback observation to fold into the taste session.
type Job struct {
	TrackID string
	At      time.Time
}

// ListenRecorder is the slice of the analyzer the pool needs.
type ListenRecorder interface {
	RecordListen(ctx context.Context, trackID string, at time.Time) error
}

// Pool manages background workers for listen jobs.
type Pool struct {
	recorder ListenRecorder
	jobs     chan Job
	wg       sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewPool creates a worker pool with the given queue size.
func NewPool(recorder ListenRecorder, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{recorder: recorder, jobs: make(chan Job, queueSize)}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue. Jobs submitted
// after Stop are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. A full queue or a stopped pool drops
// the job; listen events are advisory and losing one only slows preference
// learning.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		log.Printf("WARN worker: pool stopped, dropping listen event for %s", job.TrackID)
		return
	}
	select {
	case p.jobs <- job:
	default:
		log.Printf("WARN worker: dropping listen event for %s", job.TrackID)
	}
}

func (p *Pool) processJob(job Job) {
	if job.TrackID == "" {
		return
	}
	if err := p.recorder.RecordListen(context.Background(), job.TrackID, job.At); err != nil {
		log.Printf("WARN worker: failed to record listen for %s: %v", job.TrackID, err)
	}
}
