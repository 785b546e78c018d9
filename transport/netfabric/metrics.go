package netfabric

import (
	"github.com/spacemeshos/go-shmem/metrics"
)

const subsystem = "net"

var outstandingRequests = metrics.NewGauge(
	"outstanding_requests", subsystem, "Requests sent to a peer and not answered yet", []string{"peer"},
)
