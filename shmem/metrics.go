package shmem

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-shmem/metrics"
)

const subsystem = "rma"

var (
	putSegments = metrics.NewCounter(
		"put_segments_total", subsystem, "Number of put segments issued", nil,
	).WithLabelValues()
	putBytes = metrics.NewCounter(
		"put_bytes_total", subsystem, "Number of bytes issued by puts", nil,
	).WithLabelValues()
	gets = metrics.NewCounter(
		"gets_total", subsystem, "Number of gets issued", nil,
	).WithLabelValues()
	getBytes = metrics.NewCounter(
		"get_bytes_total", subsystem, "Number of bytes requested by gets", nil,
	).WithLabelValues()
	atomics = metrics.NewCounter(
		"atomics_total", subsystem, "Number of remote atomics issued", nil,
	).WithLabelValues()
	quietLatency = metrics.NewHistogramWithBuckets(
		"quiet_seconds", subsystem, "Time spent waiting for outstanding puts in quiet",
		nil, prometheus.ExponentialBuckets(1e-6, 4, 12),
	).WithLabelValues()
	waitWakeups = metrics.NewCounter(
		"wait_wakeups_total", subsystem, "Completion counter wakeups observed by waits", []string{"result"},
	)
	wakeupSatisfied = waitWakeups.WithLabelValues("satisfied")
	wakeupSpurious  = waitWakeups.WithLabelValues("spurious")
	barrierRounds   = metrics.NewCounter(
		"barrier_rounds_total", subsystem, "Number of completed barrier rounds", []string{"role"},
	)
	barrierRoot        = barrierRounds.WithLabelValues("root")
	barrierParticipant = barrierRounds.WithLabelValues("participant")
)
