package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/workload"
)

func (a *app) peCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pe",
		Short: "Run one pe of a job spread over several processes",
		Long: `Run one pe of a job spread over several processes.

Every pe is started with the same --peers list and --job-id, and its own --rank and --listen.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.runPE()
		},
	}
}

func (a *app) runPE() error {
	cfg := a.conf.NetPE()
	if cfg.Net.JobID == "" {
		return errors.New("job id is required")
	}
	if len(cfg.Net.Peers) == 0 {
		return errors.New("peers are required")
	}
	logger := a.logger.With(zap.String("job", cfg.Net.JobID), zap.Int("pe", cfg.Rank))
	started := time.Now()
	pe, err := job.Connect(a.ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer pe.Close()
	logger.Info("connected", zap.Int("npes", pe.Size()))

	res, err := workload.Run(a.ctx, logger, pe, a.conf.Workload)
	if err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	logger.Info("workload completed", zap.String("checksum", res.Checksum), zap.Duration("elapsed", res.Elapsed))
	return a.writeReport(&Report{
		JobID:     cfg.Net.JobID,
		Transport: "tcp",
		PEs:       pe.Size(),
		Started:   started,
		Elapsed:   time.Since(started),
		Results:   []workload.Result{res},
	})
}
