package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	job := NewJob(JobTypeInsightRefresh, userID)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeInsightRefresh {
		t.Errorf("Expected job type to be %s, got %s", JobTypeInsightRefresh, job.Type)
	}
	if job.UserID != userID {
		t.Errorf("Expected user ID to be %s, got %s", userID, job.UserID)
	}
	if job.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if job.RetryCount != 0 {
		t.Errorf("Expected retry count to be 0, got %d", job.RetryCount)
	}
	if job.MaxRetries != 3 {
		t.Errorf("Expected max retries to be 3, got %d", job.MaxRetries)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{name: "no window", want: true},
		{name: "not before in past", notBefore: &past, want: true},
		{name: "not before in future", notBefore: &future, want: false},
		{name: "not after in future", notAfter: &future, want: true},
		{name: "not after in past", notAfter: &past, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob(JobTypeWelcomeMail, uuid.New())
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeVerificationMail, uuid.New())
	if job.IsExpired() {
		t.Error("job without NotAfter should not be expired")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("job with NotAfter in the past should be expired")
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeInsightRefresh, uuid.New())
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected CanRetry at attempt %d", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("expected retries exhausted")
	}
}

func TestJob_MetadataString(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeVerificationMail, uuid.New())
	job.Metadata["email"] = "dana@example.com"
	job.Metadata["attempt"] = 3

	if got := job.MetadataString("email"); got != "dana@example.com" {
		t.Errorf("MetadataString(email) = %q", got)
	}
	if got := job.MetadataString("attempt"); got != "" {
		t.Errorf("expected empty string for non-string value, got %q", got)
	}
	if got := job.MetadataString("missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
}
