package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	authcommand "github.com/goliatone/go-authclient/command"
	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDRefresh = "authclient.session.refresh"

	paramAttempt = "attempt"
	paramReason  = "reason"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	BaseDelay       time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        time.Minute,
		BaseDelay:       time.Second,
		DeadLetterOnMax: true,
	}
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	return delay
}

// NewRefreshMessage builds the execution message for a proactive refresh.
func NewRefreshMessage(reason string, attempt int) *job.ExecutionMessage {
	if attempt < 1 {
		attempt = 1
	}
	reason = strings.TrimSpace(reason)
	return &job.ExecutionMessage{
		JobID:      JobIDRefresh,
		ScriptPath: authcommand.TypeRefresh,
		Parameters: map[string]any{
			paramAttempt: attempt,
			paramReason:  reason,
		},
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", JobIDRefresh, reason, attempt),
	}
}

// Scheduler enqueues refresh jobs.
type Scheduler struct {
	enqueuer queue.Enqueuer
}

func NewScheduler(enqueuer queue.Enqueuer) *Scheduler {
	return &Scheduler{enqueuer: enqueuer}
}

func (s *Scheduler) ScheduleRefresh(ctx context.Context, reason string) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return s.enqueuer.Enqueue(ctx, NewRefreshMessage(reason, 1))
}

// Hook receives worker lifecycle events; go-job worker hooks satisfy it.
type Hook interface {
	OnStart(ctx context.Context, event worker.Event)
	OnSuccess(ctx context.Context, event worker.Event)
	OnFailure(ctx context.Context, event worker.Event)
	OnRetry(ctx context.Context, event worker.Event)
}

type WorkerOption func(*RefreshWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *RefreshWorker) {
		w.policy = policy
	}
}

func WithHook(hook Hook) WorkerOption {
	return func(w *RefreshWorker) {
		if hook != nil {
			w.hook = hook
		}
	}
}

// RefreshWorker drains refresh jobs and runs each through the refresh command,
// so queued refreshes join the coordinator's cycle like any other caller.
type RefreshWorker struct {
	dequeuer queue.Dequeuer
	refresh  gocmd.Commander[authcommand.RefreshMessage]
	policy   RetryPolicy
	hook     Hook
	now      func() time.Time
}

func NewRefreshWorker(
	dequeuer queue.Dequeuer,
	refresh gocmd.Commander[authcommand.RefreshMessage],
	opts ...WorkerOption,
) (*RefreshWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if refresh == nil {
		return nil, fmt.Errorf("gojob: refresh command is required")
	}
	w := &RefreshWorker{
		dequeuer: dequeuer,
		refresh:  refresh,
		policy:   DefaultRetryPolicy(),
		hook:     nopHook{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// ProcessNext dequeues one delivery and settles it. Refresh failures end the
// session, so they are acknowledged instead of retried. Other errors are
// requeued within the retry policy.
func (w *RefreshWorker) ProcessNext(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("gojob: refresh worker is nil")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDRefresh {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		return delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     "unsupported job " + jobID,
		})
	}

	attempt := attemptOf(msg)
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: w.now()}
	w.hook.OnStart(ctx, event)

	execErr := w.refresh.Execute(ctx, authcommand.RefreshMessage{})
	event.Duration = w.now().Sub(event.StartedAt)
	event.Err = execErr

	if execErr == nil || core.IsRefreshFailed(execErr) || core.IsSessionClosed(execErr) {
		if execErr == nil {
			w.hook.OnSuccess(ctx, event)
		} else {
			w.hook.OnFailure(ctx, event)
		}
		return delivery.Ack(ctx)
	}

	opts := w.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   w.policy.backoff(attempt),
		Requeue: true,
		Reason:  execErr.Error(),
	}, attempt)
	event.Delay = opts.Delay
	if opts.Requeue {
		w.hook.OnRetry(ctx, event)
	} else {
		w.hook.OnFailure(ctx, event)
	}
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return nackErr
	}
	return execErr
}

func attemptOf(msg *job.ExecutionMessage) int {
	if msg == nil {
		return 1
	}
	switch value := msg.Parameters[paramAttempt].(type) {
	case int:
		if value > 0 {
			return value
		}
	case int64:
		if value > 0 {
			return int(value)
		}
	case float64:
		if value > 0 {
			return int(value)
		}
	}
	return 1
}

// LoggingHook writes worker events to a logger without token material.
type LoggingHook struct {
	logger core.Logger
}

func NewLoggingHook(logger core.Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, "debug", "refresh job started", event)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, "info", "refresh job succeeded", event)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "warn", "refresh job failed", event)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "warn", "refresh job retrying", event)
}

func (h *LoggingHook) log(ctx context.Context, level string, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	fields := []any{
		"attempt", event.Attempt,
		"delay_ms", event.Delay.Milliseconds(),
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Message != nil {
		fields = append(fields, "job_id", event.Message.JobID)
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	logger := h.logger.WithContext(ctx)
	switch level {
	case "debug":
		logger.Debug(message, fields...)
	case "info":
		logger.Info(message, fields...)
	default:
		logger.Warn(message, fields...)
	}
}

type nopHook struct{}

func (nopHook) OnStart(context.Context, worker.Event)   {}
func (nopHook) OnSuccess(context.Context, worker.Event) {}
func (nopHook) OnFailure(context.Context, worker.Event) {}
func (nopHook) OnRetry(context.Context, worker.Event)   {}

var (
	_ worker.Hook = (*LoggingHook)(nil)
	_ Hook        = (*LoggingHook)(nil)
	_ Hook        = nopHook{}
)
