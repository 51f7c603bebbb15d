/*
Package monitoring provides metrics collection for the tenant filesystem.

# Overview

This package implements Prometheus-based metrics for catalog operations,
archive extraction jobs, destination lock queues and tenant root lookups.

# Features

- Catalog operation metrics (count, latency, status)
- Sandbox escape counters, split by request and archive source
- Extraction metrics (jobs, duration, accepted/rejected entries, rollbacks)
- Destination lock metrics (wait time, pending jobs, abandoned waits)
- Tenant root cache hit/miss and circuit breaker state

# Usage

	// Register on a registry owned by the embedding process
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Time operations
	timer := monitoring.NewTimer(metrics, "write")
	// ... perform operation ...
	timer.Stop(err)

A nil *Metrics is accepted everywhere and records nothing.
*/
package monitoring
