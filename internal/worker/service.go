// Package worker runs the server's scheduled background jobs.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named task fired on a cron schedule
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (string, error)
}

// JobStatus reports the last outcome of a job
type JobStatus struct {
	Name        string    `json:"name"`
	Schedule    string    `json:"schedule"`
	Running     bool      `json:"running"`
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastRun     time.Time `json:"last_run,omitempty"`
	NextRun     time.Time `json:"next_run,omitempty"`
	LastSummary string    `json:"last_summary,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

type jobState struct {
	job     Job
	entryID cron.EntryID
	status  JobStatus
}

// WorkerService manages the cron scheduled jobs
type WorkerService struct {
	cron      *cron.Cron
	jobs      []*jobState
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	startedAt time.Time
	mu        sync.RWMutex
}

// NewWorkerService registers the jobs. A job with an empty spec is skipped;
// an invalid spec is an error.
func NewWorkerService(jobs ...Job) (*WorkerService, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ws := &WorkerService{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, job := range jobs {
		if job.Spec == "" {
			log.Printf("⚠️ Job %s has no schedule, not registering", job.Name)
			continue
		}
		state := &jobState{job: job, status: JobStatus{Name: job.Name, Schedule: job.Spec}}
		id, err := ws.cron.AddFunc(job.Spec, func() { ws.runJob(state) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.Spec, job.Name, err)
		}
		state.entryID = id
		ws.jobs = append(ws.jobs, state)
	}
	return ws, nil
}

// runJob executes one firing. A firing that overlaps a still running one is skipped.
func (ws *WorkerService) runJob(state *jobState) {
	ws.mu.Lock()
	if state.status.Running {
		ws.mu.Unlock()
		log.Printf("⚠️ Skipping %s: previous run still in progress", state.job.Name)
		return
	}
	state.status.Running = true
	ctx := ws.ctx
	ws.mu.Unlock()

	log.Printf("🔄 Running scheduled job %s", state.job.Name)
	summary, err := state.job.Run(ctx)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	state.status.Running = false
	state.status.Runs++
	state.status.LastRun = time.Now().UTC()
	state.status.LastSummary = summary
	state.status.LastError = ""
	if err != nil {
		state.status.Failures++
		state.status.LastError = err.Error()
		log.Printf("❌ Scheduled job %s failed: %v", state.job.Name, err)
		return
	}
	log.Printf("✅ Scheduled job %s finished: %s", state.job.Name, summary)
}

// Start starts the scheduler
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	ws.cron.Start()
	ws.running = true
	ws.startedAt = time.Now().UTC()
	log.Printf("✅ Background scheduler started with %d jobs", len(ws.jobs))
	return nil
}

// Stop cancels in-flight jobs and waits for them to return
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	if !ws.running {
		ws.mu.Unlock()
		return
	}
	ws.running = false
	ws.mu.Unlock()

	log.Println("🛑 Stopping background scheduler...")
	ws.cancel()
	<-ws.cron.Stop().Done()
	log.Println("✅ Background scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// Trigger runs the named job now, outside its schedule
func (ws *WorkerService) Trigger(name string) error {
	ws.mu.RLock()
	var target *jobState
	for _, state := range ws.jobs {
		if state.job.Name == name {
			target = state
			break
		}
	}
	ws.mu.RUnlock()

	if target == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	ws.runJob(target)
	return nil
}

// GetStatus returns the current status of the scheduler and its jobs
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	jobs := make([]JobStatus, 0, len(ws.jobs))
	for _, state := range ws.jobs {
		status := state.status
		if ws.running {
			status.NextRun = ws.cron.Entry(state.entryID).Next
		}
		jobs = append(jobs, status)
	}

	status := map[string]interface{}{
		"running": ws.running,
		"jobs":    jobs,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}
	return status
}
