package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/workload"
)

// Report summarizes a run.
type Report struct {
	JobID     string            `json:"job_id"`
	Transport string            `json:"transport"`
	PEs       int               `json:"npes"`
	Started   time.Time         `json:"started"`
	Elapsed   time.Duration     `json:"elapsed"`
	Results   []workload.Result `json:"results"`
}

func (a *app) writeReport(report *Report) error {
	if a.conf.Report == "" {
		return nil
	}
	data, err := sonnet.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := atomic.WriteFile(a.conf.Report, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.logger.Info("report written", zap.String("path", a.conf.Report))
	return nil
}
