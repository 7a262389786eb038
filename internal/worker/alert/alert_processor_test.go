package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/ports/messaging"
	"timecompliance.service/internal/ports/repository"
)

// stubRepo implements just the methods the alert processor touches; the
// embedded interface panics on anything else.
type stubRepo struct {
	repository.Repository

	violation *model.StoredViolation
	getErr    error

	updatedStatus model.NotifyStatus
	updatedRetry  int
}

func (s *stubRepo) GetViolation(context.Context, int64) (*model.StoredViolation, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.violation, nil
}

func (s *stubRepo) UpdateAlertStatus(_ context.Context, _ int64, status model.NotifyStatus, retryCount int) error {
	s.updatedStatus = status
	s.updatedRetry = retryCount
	return nil
}

type stubDispatcher struct {
	err   error
	calls int
}

func (d *stubDispatcher) DispatchViolation(context.Context, messaging.ViolationAlertEvent) error {
	d.calls++
	return d.err
}

func alertMessage(body string) types.Message {
	return types.Message{Body: &body}
}

func TestProcess_MalformedMessageNotRetried(t *testing.T) {
	p := NewProcessor(&stubRepo{}, &stubDispatcher{})

	retry, _, err := p.Process(context.Background(), alertMessage(`{broken`))
	if err == nil {
		t.Fatal("expected an unmarshal error")
	}
	if retry {
		t.Fatal("malformed messages must not be retried")
	}
}

func TestProcess_DispatchesAndCompletes(t *testing.T) {
	repo := &stubRepo{violation: &model.StoredViolation{ID: 7, AlertStatus: model.NotifyPending}}
	disp := &stubDispatcher{}
	p := NewProcessor(repo, disp)

	retry, _, err := p.Process(context.Background(), alertMessage(`{"violationId": 7, "companyId": "co-1"}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if retry {
		t.Fatal("a dispatched alert must not be retried")
	}
	if disp.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", disp.calls)
	}
	if repo.updatedStatus != model.NotifyCompleted || repo.updatedRetry != 0 {
		t.Fatalf("expected COMPLETED with retry reset, got %s/%d", repo.updatedStatus, repo.updatedRetry)
	}
}

func TestProcess_SkipsCompletedAlerts(t *testing.T) {
	repo := &stubRepo{violation: &model.StoredViolation{ID: 7, AlertStatus: model.NotifyCompleted}}
	disp := &stubDispatcher{}
	p := NewProcessor(repo, disp)

	retry, _, err := p.Process(context.Background(), alertMessage(`{"violationId": 7}`))
	if err != nil || retry {
		t.Fatalf("completed alerts must be dropped quietly, got retry=%v err=%v", retry, err)
	}
	if disp.calls != 0 {
		t.Fatal("dispatcher must not be called for a completed alert")
	}
}

func TestProcess_RetriesWithBackoffOnFailure(t *testing.T) {
	repo := &stubRepo{violation: &model.StoredViolation{ID: 7, AlertStatus: model.NotifyPending, AlertRetryCount: 2}}
	disp := &stubDispatcher{err: errors.New("dispatcher down")}
	p := NewProcessor(repo, disp)

	retry, delay, err := p.Process(context.Background(), alertMessage(`{"violationId": 7}`))
	if err == nil {
		t.Fatal("expected the dispatch error to surface")
	}
	if !retry {
		t.Fatal("a failed dispatch must be retried")
	}
	if delay != 80 {
		t.Fatalf("delay = %d, want the third-attempt backoff of 80s", delay)
	}
	if repo.updatedStatus != model.NotifyPending || repo.updatedRetry != 3 {
		t.Fatalf("expected PENDING with an incremented count, got %s/%d", repo.updatedStatus, repo.updatedRetry)
	}
}

func TestProcess_RetriesWhenViolationUnavailable(t *testing.T) {
	repo := &stubRepo{getErr: errors.New("connection refused")}
	p := NewProcessor(repo, &stubDispatcher{})

	retry, delay, err := p.Process(context.Background(), alertMessage(`{"violationId": 7}`))
	if err == nil || !retry {
		t.Fatalf("a db outage must schedule a retry, got retry=%v err=%v", retry, err)
	}
	if delay != 10 {
		t.Fatalf("delay = %d, want 10", delay)
	}
}
