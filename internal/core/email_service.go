package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timecompliance.service/internal/ports/messaging"
	"timecompliance.service/pkg/telemetry"
)

type EmailService interface {
	SendViolationNotice(ctx context.Context, to string, event messaging.ViolationEmailEvent) error
}

type SESEmailService struct {
	client *ses.Client
	sender string
}

func NewSESEmailService(client *ses.Client, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

// SendViolationNotice mails a critical-violation summary to the company's
// compliance contact.
func (s *SESEmailService) SendViolationNotice(ctx context.Context, to string, event messaging.ViolationEmailEvent) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// Enrich span with employeeId if available in context
	if empID := telemetry.GetEmployeeIDFromContext(ctx); empID != "" {
		span.SetAttributes(attribute.String("app.employeeId", empID))
	}
	span.SetAttributes(attribute.String("app.ruleCode", event.RuleCode))

	body := fmt.Sprintf(
		"Hello,\n\nA critical labor-compliance violation was detected.\n\nEmployee: %s\nRule: %s\nDate: %s\nDetails: %s\n\nPlease review it in the compliance dashboard.",
		event.EmployeeName, event.RuleCode, event.ViolationDate, event.Details,
	)

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Compliance violation: %s on %s", event.RuleCode, event.ViolationDate)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}
