// Package dashboard serves a live HTTP view of a running simulation: a
// JSON per-thread status endpoint routed with gorilla/mux, plus
// mkevac/debugcharts' runtime charts mounted alongside it — the dashboard
// the original has no equivalent of (the original runs on physical
// hardware with no host-side web server), supplemented here since a
// software simulation host can expose one for free.
package dashboard

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	_ "github.com/mkevac/debugcharts"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/runtime"
)

// Server exposes live thread statistics over HTTP. Threads register
// themselves with Track; the dashboard reads their ThreadStats directly,
// so numbers reflect the simulation's current state on every request.
type Server struct {
	mu      sync.RWMutex
	threads map[addr.ThreadId]*runtime.ThreadStats
	router  *mux.Router
}

// New creates a Server with no threads tracked yet.
func New() *Server {
	s := &Server{threads: make(map[addr.ThreadId]*runtime.ThreadStats)}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.PathPrefix("/debug/charts/").Handler(http.DefaultServeMux)
	s.router = r

	return s
}

// Track registers a thread's live ThreadStats under the dashboard's
// /status endpoint. stats is read, not copied, so later updates to the
// thread's counters are visible on the next request.
func (s *Server) Track(tid addr.ThreadId, stats *runtime.ThreadStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[tid] = stats
}

// ServeHTTP implements http.Handler, routing through the dashboard's
// gorilla/mux router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the dashboard on addr. It blocks until the server
// stops or errors, the same way debugcharts' own example starts theirs.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

type threadStatus struct {
	Thread   addr.ThreadId `json:"thread"`
	Sent     uint64        `json:"sent"`
	Received uint64        `json:"received"`
	Steps    uint64        `json:"steps"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]threadStatus, 0, len(s.threads))
	for tid, st := range s.threads {
		out = append(out, threadStatus{Thread: tid, Sent: st.Sent, Received: st.Received, Steps: st.Steps})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Thread < out[j].Thread })

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
