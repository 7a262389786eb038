package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"timecompliance.service/internal/core"
	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/observability/metrics"
	"timecompliance.service/internal/ports/messaging"
	"timecompliance.service/internal/ports/repository"
	"timecompliance.service/internal/worker"
)

type EmailProcessor struct {
	emailService core.EmailService
	repo         repository.Repository
}

// NewProcessor sets up a new processor for handling email-related jobs.
// It needs an email service to send emails and a repository to update the job status.
func NewProcessor(emailService core.EmailService, repo repository.Repository) *EmailProcessor {
	return &EmailProcessor{
		emailService: emailService,
		repo:         repo,
	}
}

// Process is the main entry point for handling a message from the email queue.
// It tries to send an email and will tell the worker to retry if something goes wrong.
func (p *EmailProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.ViolationEmailEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal email event")
		return false, 0, err // Do not retry on malformed message
	}

	record, err := p.repo.GetViolation(ctx, event.ViolationID)
	if err != nil {
		// If we can't get the record, retry after a short delay.
		return true, 10, fmt.Errorf("failed to get violation from db for email processing: %w", err)
	}

	if record.EmailStatus == model.NotifyCompleted {
		log.Ctx(ctx).Info().Int64("violation_id", event.ViolationID).Msg("Email already sent. Skipping.")
		return false, 0, nil
	}

	contact, err := p.repo.GetComplianceContact(ctx, event.CompanyID)
	if err != nil {
		return true, 10, fmt.Errorf("failed to get compliance contact: %w", err)
	}
	if contact == "" {
		log.Ctx(ctx).Warn().Str("company_id", event.CompanyID).Msg("No compliance contact configured; dropping email")
		return false, 0, p.repo.UpdateEmailStatus(ctx, event.ViolationID, model.NotifyCompleted, 0)
	}

	err = p.emailService.SendViolationNotice(ctx, contact, event)
	if err != nil {
		metrics.RecordNotification("email", "error")
		newCount := record.EmailRetryCount + 1
		p.repo.UpdateEmailStatus(ctx, event.ViolationID, model.NotifyPending, newCount)

		delay := worker.CalculateBackoff(newCount)
		return true, delay, err
	}

	metrics.RecordNotification("email", "success")
	err = p.repo.UpdateEmailStatus(ctx, event.ViolationID, model.NotifyCompleted, 0)
	return false, 0, err
}
