package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/observability/metrics"
	"timecompliance.service/internal/ports/messaging"
	"timecompliance.service/internal/ports/repository"
	"timecompliance.service/internal/worker"
	"timecompliance.service/internal/worker/dispatcher"
)

// AlertProcessor handles jobs from the alert queue, forwarding critical
// violations to the external notification dispatcher. It uses a circuit
// breaker to avoid hammering the dispatcher if it's having issues.
type AlertProcessor struct {
	Repo       repository.Repository
	dispatcher dispatcher.Client
	cb         *gobreaker.CircuitBreaker
}

// NewProcessor creates a new processor for the alert queue. It sets up a
// circuit breaker to protect the dispatcher from being overwhelmed.
func NewProcessor(r repository.Repository, d dispatcher.Client) *AlertProcessor {
	settings := gobreaker.Settings{
		Name:        "Notification-Dispatcher",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger then 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &AlertProcessor{
		Repo:       r,
		dispatcher: d,
		cb:         gobreaker.NewCircuitBreaker(settings),
	}
}

// Process handles one message from the alert queue. It calls the dispatcher
// through the circuit breaker and schedules retries with exponential backoff.
func (p *AlertProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.ViolationAlertEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal alert event")
		return false, 0, err // Do not retry on malformed message
	}

	record, err := p.Repo.GetViolation(ctx, event.ViolationID)
	if err != nil {
		return true, 10, fmt.Errorf("failed to get violation from db: %w", err)
	}

	if record.AlertStatus == model.NotifyCompleted {
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.dispatcher.DispatchViolation(ctx, event)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Ctx(ctx).Warn().Msg("Circuit Breaker is OPEN; skipping dispatcher call")
		}
		metrics.RecordNotification("dispatcher", "error")
		newCount := record.AlertRetryCount + 1
		p.Repo.UpdateAlertStatus(ctx, event.ViolationID, model.NotifyPending, newCount)

		delay := worker.CalculateBackoff(newCount)
		return true, delay, err
	}

	metrics.RecordNotification("dispatcher", "success")
	err = p.Repo.UpdateAlertStatus(ctx, event.ViolationID, model.NotifyCompleted, 0)
	return false, 0, err
}
