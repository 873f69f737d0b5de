package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkrenek/adwatch/internal/httpserver/deps"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/singleflight"
)

func checkDeps() deps.Deps {
	return deps.Deps{
		Logger:       logger.New("error", false),
		CheckGuard:   &singleflight.Guard{},
		CheckTrigger: make(chan struct{}, 1),
	}
}

func TestCheck_TriggersSweep(t *testing.T) {
	d := checkDeps()
	rec := httptest.NewRecorder()
	Check(d)(rec, httptest.NewRequest(http.MethodPost, "/check", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	select {
	case <-d.CheckTrigger:
	default:
		t.Error("no trigger sent on the channel")
	}
}

func TestCheck_RejectsWhileSweepRuns(t *testing.T) {
	d := checkDeps()
	if !d.CheckGuard.TryAcquire() {
		t.Fatal("failed to acquire fresh guard")
	}
	defer d.CheckGuard.Release()

	rec := httptest.NewRecorder()
	Check(d)(rec, httptest.NewRequest(http.MethodPost, "/check", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if len(d.CheckTrigger) != 0 {
		t.Error("trigger sent despite running sweep")
	}
}

func TestCheck_RejectsWhenTriggerPending(t *testing.T) {
	d := checkDeps()
	d.CheckTrigger <- struct{}{} // fill the buffer

	rec := httptest.NewRecorder()
	Check(d)(rec, httptest.NewRequest(http.MethodPost, "/check", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}
