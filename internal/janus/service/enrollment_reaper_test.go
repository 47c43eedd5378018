package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeExpirer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeExpirer) ExpireStale(context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestEnrollmentReaper_SweepsUntilStopped(t *testing.T) {
	f := &fakeExpirer{}
	r := NewEnrollmentReaper(f, 5*time.Millisecond, nil)
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("reaper swept %d times, want >= 3", f.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}

	r.Stop()
	n := f.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := f.calls.Load(); got != n {
		t.Fatalf("sweeps after Stop: %d -> %d", n, got)
	}
}

func TestEnrollmentReaper_SurvivesErrors(t *testing.T) {
	f := &fakeExpirer{err: errors.New("db locked")}
	r := NewEnrollmentReaper(f, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	for f.calls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-r.done
}

func TestEnrollmentReaper_DefaultInterval(t *testing.T) {
	r := NewEnrollmentReaper(&fakeExpirer{}, 0, nil)
	if r.interval != 15*time.Second {
		t.Fatalf("interval = %s", r.interval)
	}
	r.Stop() // not started; must not block
}
