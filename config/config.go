// Package config contains the configuration of the shmem tools.
package config

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/metrics"
	"github.com/spacemeshos/go-shmem/shmem"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport/memfabric"
	"github.com/spacemeshos/go-shmem/transport/netfabric"
	"github.com/spacemeshos/go-shmem/workload"
)

// Transports of local jobs.
const (
	TransportMem = "mem"
	TransportTCP = "tcp"
)

// Config defines the top level configuration.
type Config struct {
	Logging  log.Config      `mapstructure:"logging"`
	Metrics  metrics.Config  `mapstructure:"metrics"`
	Heap     symheap.Config  `mapstructure:"heap"`
	Shmem    shmem.Config    `mapstructure:"shmem"`
	Local    LocalConfig     `mapstructure:"local"`
	PE       PEConfig        `mapstructure:"pe"`
	Workload workload.Config `mapstructure:"workload"`
	// Report is the path of the JSON report of a run. Empty disables the report.
	Report string `mapstructure:"report"`
}

// LocalConfig describes a job with all PEs in this process.
type LocalConfig struct {
	Size int `mapstructure:"npes"`
	// Transport connecting the PEs, TransportMem or TransportTCP over loopback.
	Transport string           `mapstructure:"transport"`
	Fabric    memfabric.Config `mapstructure:"fabric"`
}

// PEConfig describes one PE of a job spread over processes.
type PEConfig struct {
	Rank int              `mapstructure:"rank"`
	Net  netfabric.Config `mapstructure:"net"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Logging: log.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
		Heap:    symheap.DefaultConfig(),
		Shmem:   shmem.DefaultConfig(),
		Local: LocalConfig{
			Size:      2,
			Transport: TransportMem,
			Fabric:    memfabric.DefaultConfig(),
		},
		PE: PEConfig{
			Net: netfabric.DefaultConfig(),
		},
		Workload: workload.DefaultConfig(),
	}
}

// LocalJob returns the configuration of a local job.
func (c *Config) LocalJob() job.Config {
	return job.Config{
		Size:   c.Local.Size,
		Heap:   c.Heap,
		Shmem:  c.Shmem,
		Fabric: c.Local.Fabric,
	}
}

// NetPE returns the configuration of a networked PE.
func (c *Config) NetPE() job.NetConfig {
	return job.NetConfig{
		Rank:  c.PE.Rank,
		Heap:  c.Heap,
		Shmem: c.Shmem,
		Net:   c.PE.Net,
	}
}

// Validate checks the values that are not checked by the components themselves.
func (c *Config) Validate() error {
	switch c.Local.Transport {
	case TransportMem, TransportTCP:
	default:
		return fmt.Errorf("unknown transport %q", c.Local.Transport)
	}
	return c.Workload.Validate()
}

// AddFlags binds the command line flags of cfg to flags.
func AddFlags(flags *pflag.FlagSet, cfg *Config) {
	/** ======================== Logging and metrics ========================== **/
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "minimal level of logged messages")
	flags.StringVar(&cfg.Logging.Encoder, "log-encoder", cfg.Logging.Encoder, "log as json or console text")
	flags.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "serve prometheus metrics")
	flags.StringVar(&cfg.Metrics.Listen, "metrics-listen", cfg.Metrics.Listen, "address of the metrics server")

	/** ======================== Engine ========================== **/
	flags.Uint64Var(&cfg.Heap.HeapSize, "heap-size", cfg.Heap.HeapSize, "size of the symmetric heap of each pe")
	flags.BoolVar(&cfg.Heap.Mmap, "mmap", cfg.Heap.Mmap, "back the symmetric heap with an anonymous mapping")
	flags.Uint64Var(&cfg.Shmem.MaxOrderedSize, "max-ordered-size", cfg.Shmem.MaxOrderedSize,
		"largest put issued as a single segment, 0 uses the transport limit")
	flags.BoolVar(&cfg.Shmem.BatchStridedGets, "batch-strided-gets", cfg.Shmem.BatchStridedGets,
		"issue all elements of a strided get before waiting for the replies")

	/** ======================== Local job ========================== **/
	flags.IntVarP(&cfg.Local.Size, "npes", "n", cfg.Local.Size, "number of pes of a local job")
	flags.StringVar(&cfg.Local.Transport, "transport", cfg.Local.Transport, "transport of local jobs: mem or tcp")

	/** ======================== Networked PE ========================== **/
	flags.IntVar(&cfg.PE.Rank, "rank", cfg.PE.Rank, "rank of this pe")
	flags.StringVar(&cfg.PE.Net.Listen, "listen", cfg.PE.Net.Listen, "address accepting connections of peers")
	flags.StringSliceVar(&cfg.PE.Net.Peers, "peers", cfg.PE.Net.Peers, "listen addresses of all pes, by rank")
	flags.StringVar(&cfg.PE.Net.JobID, "job-id", cfg.PE.Net.JobID, "uuid shared by every pe of the job")
	flags.DurationVar(&cfg.PE.Net.DialTimeout, "dial-timeout", cfg.PE.Net.DialTimeout, "time to wait for peers to come up")

	/** ======================== Workload ========================== **/
	flags.IntVar(&cfg.Workload.Rounds, "rounds", cfg.Workload.Rounds, "number of exchange rounds")
	flags.IntVar(&cfg.Workload.Elements, "elements", cfg.Workload.Elements, "number of words exchanged per round")
	flags.IntVar(&cfg.Workload.Stride, "stride", cfg.Workload.Stride, "stride of the strided exchange")
	flags.StringVar(&cfg.Report, "report", cfg.Report, "write a json report to this path")
}

// Load reads the configuration file at path over the defaults and applies the flags that were
// set on the command line on top of it. An empty path skips the file.
func Load(fs afero.Fs, path string, flags *pflag.FlagSet) (*Config, error) {
	conf := DefaultConfig()
	if path != "" {
		vip := viper.New()
		vip.SetFs(fs)
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		hook := mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
		if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if flags == nil {
		return &conf, nil
	}

	// flags are bound to the defaults, replay the changed ones onto the loaded values
	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	AddFlags(overlay, &conf)
	var errs error
	flags.Visit(func(f *pflag.Flag) {
		target := overlay.Lookup(f.Name)
		if target == nil {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			errs = errors.Join(errs, target.Value.(pflag.SliceValue).Replace(sv.GetSlice()))
			return
		}
		errs = errors.Join(errs, target.Value.Set(f.Value.String()))
	})
	if errs != nil {
		return nil, fmt.Errorf("apply flags: %w", errs)
	}
	return &conf, nil
}
