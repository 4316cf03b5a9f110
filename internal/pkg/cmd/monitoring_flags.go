package cmd

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/heptiolabs/healthcheck"              // Healthchecks framework.
	"github.com/prometheus/client_golang/prometheus" // Prometheus metrics.
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitoringFlags represents a set of flags for serving healthchecks
// and Prometheus metrics while a long-running command executes.
type MonitoringFlags struct {
	Enabled     bool   // Serve monitoring endpoints at all.
	Port        uint16 // Port to serve on.
	LivePath    string // HTTP path of the liveness healthcheck.
	ReadyPath   string // HTTP path of the readiness healthcheck.
	MetricsPath string // HTTP path of the Prometheus metrics.
}

// NewMonitoringFlags returns a new MonitoringFlags.
func NewMonitoringFlags(app Flagger, port int) *MonitoringFlags {
	var f MonitoringFlags

	app.Flag("serve", "Serve health checks and Prometheus metrics over HTTP while running.").
		BoolVar(&f.Enabled)

	app.Flag("serve.port", "Port on which to expose health checks and Prometheus metrics.").
		Default(strconv.Itoa(port)).
		Uint16Var(&f.Port)

	app.Flag("serve.metrics", "Path at which to serve Prometheus metrics.").
		Default("/metrics").
		StringVar(&f.MetricsPath)

	app.Flag("serve.live", "Path at which to serve the liveness healthcheck.").
		Default("/livez").
		StringVar(&f.LivePath)

	app.Flag("serve.ready", "Path at which to serve the readiness healthcheck.").
		Default("/readyz").
		StringVar(&f.ReadyPath)

	return &f
}

// NewHealthchecksHandler returns a healthcheck.Handler with a basic
// liveness check, a readiness check that the given Elasticsearch URL
// responds, and Prometheus healthcheck status metrics.
func NewHealthchecksHandler(r prometheus.Registerer, esURL string) healthcheck.Handler {
	h := healthcheck.NewMetricsHandler(r, Namespace)
	h.AddLivenessCheck("alive", func() error { return nil })
	h.AddReadinessCheck("elasticsearch", healthcheck.HTTPGetCheck(esURL, 5*time.Second))
	return h
}

// ConfigureMux sets a mux to serve healthchecks and Prometheus
// metrics based on the path flags in f.
func (f *MonitoringFlags) ConfigureMux(mux *http.ServeMux, h healthcheck.Handler, g prometheus.Gatherer) *http.ServeMux {
	mux.Handle(f.MetricsPath, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc(f.LivePath, h.LiveEndpoint)
	mux.HandleFunc(f.ReadyPath, h.ReadyEndpoint)
	return mux
}

// Server returns a new HTTP server configured to listen on the
// port defined by the Port flag.
func (f *MonitoringFlags) Server(h http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", f.Port),
		Handler: h,
	}
}
