package node

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gopatchy/artnode/internal/obs"
)

const httpShutdownTimeout = 5 * time.Second

// httpServer serves /metrics (Prometheus) and /debug/snapshot (JSON).
// It lives in node, not shell: the wire runtime has no HTTP surface.
type httpServer struct {
	srv *http.Server
}

func newHTTPServer(addr string, metrics *obs.Metrics, snapshot func([]string) map[string]any) *httpServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/snapshot", func(w http.ResponseWriter, r *http.Request) {
		keys := r.URL.Query()["key"]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshot(keys))
	})
	return &httpServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

func (h *httpServer) start() {
	go h.srv.ListenAndServe() //nolint:errcheck // shutdown path closes the listener; nothing to act on here
}

func (h *httpServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	h.srv.Shutdown(ctx)
}
