package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[logging]
level = "debug"

[heap]
heap-size = 65536

[shmem]
max-ordered-size = 128
batch-strided-gets = true

[local]
npes = 8
transport = "tcp"

[pe]
rank = 3

[pe.net]
peers = "10.0.0.1:7513,10.0.0.2:7513"
dial-timeout = "3s"

[workload]
rounds = 2
`

func writeConfig(tb testing.TB, fs afero.Fs, path, data string) {
	tb.Helper()
	require.NoError(tb, afero.WriteFile(fs, path, []byte(data), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(afero.NewMemMapFs(), "", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), *conf)
	require.NoError(t, conf.Validate())
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "/etc/shmem.toml", testConfig)

	conf, err := Load(fs, "/etc/shmem.toml", nil)
	require.NoError(t, err)
	require.Equal(t, "debug", conf.Logging.Level)
	require.Equal(t, uint64(65536), conf.Heap.HeapSize)
	require.True(t, conf.Heap.Mmap, "unset values keep their default")
	require.Equal(t, uint64(128), conf.Shmem.MaxOrderedSize)
	require.True(t, conf.Shmem.BatchStridedGets)
	require.Equal(t, 8, conf.Local.Size)
	require.Equal(t, TransportTCP, conf.Local.Transport)
	require.Equal(t, []string{"10.0.0.1:7513", "10.0.0.2:7513"}, conf.PE.Net.Peers)
	require.Equal(t, 3*time.Second, conf.PE.Net.DialTimeout)
	require.Equal(t, 2, conf.Workload.Rounds)

	local := conf.LocalJob()
	require.Equal(t, 8, local.Size)
	require.Equal(t, conf.Shmem, local.Shmem)
	pe := conf.NetPE()
	require.Equal(t, 3, pe.Rank)
	require.Equal(t, conf.Heap, pe.Heap)
}

func TestFlagsOverrideFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeConfig(t, fs, "shmem.toml", testConfig)

	defaults := DefaultConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags, &defaults)
	require.NoError(t, flags.Parse([]string{
		"-n", "3",
		"--peers", "a:1,b:2,c:3",
		"--dial-timeout", "1m",
		"--report", "out.json",
	}))

	conf, err := Load(fs, "shmem.toml", flags)
	require.NoError(t, err)
	require.Equal(t, 3, conf.Local.Size)
	require.Equal(t, []string{"a:1", "b:2", "c:3"}, conf.PE.Net.Peers)
	require.Equal(t, time.Minute, conf.PE.Net.DialTimeout)
	require.Equal(t, "out.json", conf.Report)
	require.Equal(t, TransportTCP, conf.Local.Transport, "flags that were not set keep file values")
	require.Equal(t, 2, conf.Workload.Rounds)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Load(fs, "missing.toml", nil)
	require.Error(t, err)

	writeConfig(t, fs, "bad.toml", "[local]\nnpes = \"many\"\n")
	_, err = Load(fs, "bad.toml", nil)
	require.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	conf := DefaultConfig()
	conf.Local.Transport = "carrier-pigeon"
	require.Error(t, conf.Validate())
}
