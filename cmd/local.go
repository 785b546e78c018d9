package cmd

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-shmem/config"
	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/transport/netfabric"
	"github.com/spacemeshos/go-shmem/workload"
)

func (a *app) localCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Run the workload on a job with all pes in this process",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.runLocal()
		},
	}
}

type results struct {
	mu   sync.Mutex
	list []workload.Result
}

func (r *results) add(res workload.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, res)
}

func (r *results) sorted() []workload.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.list, func(i, j int) bool { return r.list[i].PE < r.list[j].PE })
	return r.list
}

func (a *app) runLocal() error {
	jobID := uuid.New()
	logger := a.logger.With(zap.Stringer("job", jobID))
	logger.Info("starting local job",
		zap.Int("npes", a.conf.Local.Size),
		zap.String("transport", a.conf.Local.Transport),
	)
	var (
		started = time.Now()
		out     results
		run     = func(ctx context.Context, pe *job.PE) error {
			res, err := workload.Run(ctx, logger.With(zap.Int("pe", pe.Rank())), pe, a.conf.Workload)
			if err != nil {
				return err
			}
			out.add(res)
			return nil
		}
		err error
	)
	switch a.conf.Local.Transport {
	case config.TransportTCP:
		err = a.runLoopback(jobID, logger, run)
	default:
		err = job.RunLocal(a.ctx, a.conf.LocalJob(), run, job.WithLogger(logger))
	}
	if err != nil {
		return fmt.Errorf("local job: %w", err)
	}
	report := &Report{
		JobID:     jobID.String(),
		Transport: a.conf.Local.Transport,
		PEs:       a.conf.Local.Size,
		Started:   started,
		Elapsed:   time.Since(started),
		Results:   out.sorted(),
	}
	logger.Info("local job completed", zap.Duration("elapsed", report.Elapsed))
	return a.writeReport(report)
}

// runLoopback runs every pe of the job in this process, connected over TCP on the loopback
// interface.
func (a *app) runLoopback(jobID uuid.UUID, logger *zap.Logger, run func(context.Context, *job.PE) error) error {
	size := a.conf.Local.Size
	lns := make([]net.Listener, size)
	peers := make([]string, size)
	for i := range lns {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			for _, ln := range lns[:i] {
				ln.Close()
			}
			return fmt.Errorf("listen for pe %d: %w", i, err)
		}
		lns[i] = ln
		peers[i] = ln.Addr().String()
	}
	eg, ctx := errgroup.WithContext(a.ctx)
	for rank := range lns {
		eg.Go(func() error {
			cfg := a.conf.NetPE()
			cfg.Rank = rank
			cfg.Net.Peers = peers
			cfg.Net.JobID = jobID.String()
			pe, err := job.Connect(ctx, logger.With(zap.Int("pe", rank)), cfg, netfabric.WithListener(lns[rank]))
			if err != nil {
				lns[rank].Close()
				return err
			}
			defer pe.Close()
			return run(ctx, pe)
		})
	}
	return eg.Wait()
}
