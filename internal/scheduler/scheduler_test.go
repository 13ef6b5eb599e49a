package scheduler

import (
	"context"
	"errors"
	"testing"
)

func TestNewRejectsBadTimezone(t *testing.T) {
	t.Parallel()
	if _, err := New("Mars/Olympus", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()
	if err := ValidateSchedule("0 6 * * *"); err != nil {
		t.Fatalf("valid schedule: %v", err)
	}
	if err := ValidateSchedule("every morning"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAddAndRemoveJobs(t *testing.T) {
	t.Parallel()
	s, err := New("UTC", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	noop := func(context.Context) error { return nil }

	if err := s.AddBatchJob("0 6 * * *", noop); err != nil {
		t.Fatalf("AddBatchJob: %v", err)
	}
	if err := s.AddBatchJob("0 7 * * *", noop); err == nil {
		t.Fatal("expected duplicate job error")
	}
	if err := s.AddJob("bad", "not cron", noop); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := s.AddJob("hourly", "0 * * * *", noop); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	jobs := s.ListJobs()
	if len(jobs) != 2 || jobs[0].Name != BatchJobName || jobs[1].Name != "hourly" {
		t.Fatalf("jobs=%+v", jobs)
	}

	s.RemoveJob("hourly")
	if jobs := s.ListJobs(); len(jobs) != 1 {
		t.Fatalf("jobs after remove=%+v", jobs)
	}
}

func TestRunNowReturnsJobError(t *testing.T) {
	t.Parallel()
	s, err := New("UTC", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	boom := errors.New("boom")
	if err := s.RunNow(context.Background(), "x", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
