package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/errreport"
	"hrms/internal/platform/metrics"
	"hrms/internal/platform/queue"
)

const (
	JobLeaveAccrual       = "leave_accrual"
	JobComplianceReminder = "compliance_reminder"
	JobAnnouncementExpiry = "announcement_expiry"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrUnknownJob = errors.New("unknown job type")

// Handler performs one run of a job and returns details stored on the run.
type Handler func(ctx context.Context) (any, error)

type Run struct {
	ID          int64           `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type registration struct {
	handler  Handler
	interval time.Duration
}

type Service struct {
	DB       *pgxpool.Pool
	Queue    queue.Queue
	Metrics  *metrics.Collector
	Reporter *errreport.Reporter

	mu       sync.RWMutex
	handlers map[string]registration
}

func New(db *pgxpool.Pool, q queue.Queue) *Service {
	if q == nil {
		q = queue.NewInMemory(128)
	}
	return &Service{DB: db, Queue: q, handlers: map[string]registration{}}
}

// Register binds a job type to its handler. A positive interval schedules
// the job on a ticker once Start is called.
func (s *Service) Register(jobType string, interval time.Duration, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = registration{handler: handler, interval: interval}
}

func (s *Service) handler(jobType string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.handlers[jobType]
	return reg.handler, ok
}

func (s *Service) Start(ctx context.Context) error {
	messages, err := s.Queue.Consume(ctx)
	if err != nil {
		return err
	}
	go s.worker(ctx, messages)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for jobType, reg := range s.handlers {
		if reg.interval > 0 {
			go s.schedule(ctx, jobType, reg.interval)
		}
	}
	return nil
}

func (s *Service) Enqueue(ctx context.Context, jobType string) error {
	if _, ok := s.handler(jobType); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobType)
	}
	return s.Queue.Publish(ctx, queue.Message{Type: jobType})
}

// RunNow executes a registered job inline and records the run.
func (s *Service) RunNow(ctx context.Context, jobType string) (any, error) {
	handler, ok := s.handler(jobType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobType)
	}
	return s.runJob(ctx, jobType, handler)
}

func (s *Service) worker(ctx context.Context, messages <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			handler, known := s.handler(msg.Type)
			if !known {
				slog.Warn("job type not registered", "jobType", msg.Type)
				continue
			}
			if _, err := s.runJob(ctx, msg.Type, handler); err != nil {
				slog.Warn("job run failed", "jobType", msg.Type, "err", err)
			}
		}
	}
}

func (s *Service) schedule(ctx context.Context, jobType string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Enqueue(ctx, jobType); err != nil {
				slog.Warn("job enqueue failed", "jobType", jobType, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, jobType string, handler Handler) (any, error) {
	var runID int64
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1, $2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := handler(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		s.Reporter.Error(err, map[string]any{"jobType": jobType})
		details = map[string]string{"error": err.Error()}
	}
	s.Metrics.JobRun(jobType, status)

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID > 0 {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE ($1::text = '' OR job_type = $1)
    ORDER BY started_at DESC
    LIMIT $2
  `, jobType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var details []byte
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			run.Details = json.RawMessage(details)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
