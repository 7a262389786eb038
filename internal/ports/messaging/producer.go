package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Producer publishes violation events to the alert and email queues.
type Producer struct {
	sender        MessageSender
	alertQueueURL string
	emailQueueURL string
}

func NewProducer(sender MessageSender, alertQueueURL, emailQueueURL string) *Producer {
	return &Producer{
		sender:        sender,
		alertQueueURL: alertQueueURL,
		emailQueueURL: emailQueueURL,
	}
}

func NewSQSProducer(client SQSClient, alertQueueURL, emailQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, alertQueueURL, emailQueueURL)
}

func (p *Producer) PublishAlert(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.alertQueueURL, body)
}

func (p *Producer) PublishEmail(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.emailQueueURL, body)
}

func (p *Producer) publish(ctx context.Context, destination string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	// Enrich the current span with employee_id if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			EmployeeID string `json:"employeeId"`
			RuleCode   string `json:"ruleCode"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.EmployeeID != "" {
			span.SetAttributes(
				attribute.String("app.employeeId", payload.EmployeeID),
				attribute.String("app.ruleCode", payload.RuleCode),
			)
		}
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
