package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/services/insights"
)

// JobProcessor routes queued jobs to their handlers and owns the
// ack/nack decision for each message.
type JobProcessor struct {
	mailer   *Mailer
	insights *insights.Service
	jobQueue queue.JobQueue // for re-enqueueing delayed retries
	logger   *zap.Logger
}

// NewJobProcessor creates a processor for the worker consume loop.
func NewJobProcessor(mailer *Mailer, insightSvc *insights.Service, jobQueue queue.JobQueue, logger *zap.Logger) *JobProcessor {
	return &JobProcessor{
		mailer:   mailer,
		insights: insightSvc,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessInsightRefreshJob regenerates the monthly insight summary for
// the job's user.
func (p *JobProcessor) ProcessInsightRefreshJob(ctx context.Context, job *queue.Job) error {
	if err := p.insights.Refresh(ctx, job.UserID); err != nil {
		return fmt.Errorf("failed to refresh insights: %w", err)
	}
	return nil
}

// ProcessJob dispatches a message by job type. Mail jobs retry through
// the broker; insight jobs retry through the delayed exchange so model
// rate limits and quota windows are respected.
func (p *JobProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeVerificationMail:
		if err := p.mailer.ProcessVerificationMailJob(ctx, job); err != nil {
			return p.retryOrDrop(msg, job, err)
		}

	case queue.JobTypeWelcomeMail:
		if err := p.mailer.ProcessWelcomeMailJob(ctx, job); err != nil {
			return p.retryOrDrop(msg, job, err)
		}

	case queue.JobTypeInsightRefresh:
		if err := p.ProcessInsightRefreshJob(ctx, job); err != nil {
			return p.handleInsightError(ctx, msg, job, err)
		}

	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Error("job_nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, ackErr)
	}
	return nil
}

// retryOrDrop requeues a failed job through the broker until its retry
// budget is exhausted, then dead-letters it.
func (p *JobProcessor) retryOrDrop(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		p.logger.Warn("job_retry",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			p.logger.Error("job_nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	p.logger.Error("job_dead_lettered",
		zap.Error(err),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("max_retries", job.MaxRetries),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Error("job_nack_failed", zap.Error(nackErr), zap.String("job_id", job.ID.String()))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// handleInsightError re-enqueues insight jobs with a NotBefore delay
// sized to the failure class instead of hammering the model API.
func (p *JobProcessor) handleInsightError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if !insights.IsQuotaError(err) && !insights.IsRateLimitError(err) {
		return p.retryOrDrop(msg, job, err)
	}

	if !job.CanRetry() || p.jobQueue == nil {
		return p.retryOrDrop(msg, job, err)
	}

	delay := insights.RetryDelay(err, job.RetryCount)
	notBefore := time.Now().Add(delay)
	delayed := &queue.Job{
		ID:         job.ID,
		Type:       job.Type,
		UserID:     job.UserID,
		NotBefore:  &notBefore,
		NotAfter:   job.NotAfter,
		Metadata:   job.Metadata,
		CreatedAt:  job.CreatedAt,
		RetryCount: job.RetryCount + 1,
		MaxRetries: job.MaxRetries,
	}

	if ackErr := msg.Ack(); ackErr != nil {
		p.logger.Error("job_ack_failed", zap.Error(ackErr), zap.String("job_id", job.ID.String()))
	}

	if enqueueErr := p.jobQueue.Enqueue(ctx, delayed); enqueueErr != nil {
		return fmt.Errorf("failed to re-enqueue insight job %s: %w", job.ID, enqueueErr)
	}

	p.logger.Warn("insight_job_delayed",
		zap.Error(err),
		zap.String("job_id", job.ID.String()),
		zap.Time("not_before", notBefore),
		zap.Duration("delay", delay),
		zap.Int("attempt", delayed.RetryCount),
	)
	return nil
}
