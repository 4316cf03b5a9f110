package cmd

import (
	"github.com/prometheus/client_golang/prometheus" // Prometheus metrics.
)

// Namespace is the namespace used for Prometheus metrics throughout
// elastictools.
const Namespace = "elastictools"

// BuildPromFQName builds a fully-qualified Prometheus metric name in
// the elastictools namespace.
func BuildPromFQName(subsystem, name string) string {
	return prometheus.BuildFQName(Namespace, subsystem, name)
}
