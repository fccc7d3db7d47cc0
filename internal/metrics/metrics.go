// Package metrics exposes agent loop counters in Prometheus format.
//
// A nil *Recorder is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Recorder holds the collectors for one registry.
type Recorder struct {
	rounds          prometheus.Counter
	toolCalls       *prometheus.CounterVec
	tokens          *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	gatherer        prometheus.Gatherer
}

// New creates a recorder and registers its collectors with reg. A nil reg
// uses a private registry.
func New(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_rounds_total",
			Help:      "Total number of provider rounds run by the agent loop.",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls by tool type and outcome.",
		}, []string{"type", "outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total number of tokens reported by providers.",
		}, []string{"provider", "direction"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "outcome"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{r.rounds, r.toolCalls, r.tokens, r.providerLatency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Round counts one provider round.
func (r *Recorder) Round() {
	if r == nil {
		return
	}
	r.rounds.Inc()
}

// ToolCall counts one tool call.
func (r *Recorder) ToolCall(toolType string, success bool) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(toolType, outcome(success)).Inc()
}

// Tokens adds reported token usage.
func (r *Recorder) Tokens(provider string, input, output int) {
	if r == nil {
		return
	}
	if input > 0 {
		r.tokens.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		r.tokens.WithLabelValues(provider, "output").Add(float64(output))
	}
}

// ProviderRequest observes the duration of one provider call.
func (r *Recorder) ProviderRequest(provider string, d time.Duration, success bool) {
	if r == nil {
		return
	}
	r.providerLatency.WithLabelValues(provider, outcome(success)).Observe(d.Seconds())
}

// Handler exposes the metrics in Prometheus text exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is done.
func (r *Recorder) StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
