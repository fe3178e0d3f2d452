package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/runtime"
)

func TestStatusReportsTrackedThreads(t *testing.T) {
	s := New()
	stats := &runtime.ThreadStats{Sent: 3, Received: 2, Steps: 1}
	s.Track(addr.ThreadId(0), stats)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []threadStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Sent != 3 || got[0].Received != 2 || got[0].Steps != 1 {
		t.Fatalf("got %+v, want one thread with Sent:3 Received:2 Steps:1", got)
	}
}

func TestStatusReflectsLiveCounterUpdates(t *testing.T) {
	s := New()
	stats := &runtime.ThreadStats{}
	s.Track(addr.ThreadId(0), stats)

	stats.Sent = 10 // mutate after Track, as a live simulation would

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var got []threadStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Sent != 10 {
		t.Fatalf("got %+v, want Sent:10 reflecting the live update", got)
	}
}
