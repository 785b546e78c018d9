package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, Config{Level: "warn", Encoder: JSONEncoder})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", zap.Int("pe", 3))
	require.NoError(t, logger.Sync())

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"pe":3`)

	_, err = NewWithWriter(&buf, Config{Level: "loud"})
	require.Error(t, err)
	_, err = NewWithWriter(&buf, Config{Level: "info", Encoder: "xml"})
	require.Error(t, err)
}

func TestFatalError(t *testing.T) {
	cause := errors.New("queue full")
	err := ErrTransportRejected("put", cause)
	require.Equal(t, "transport rejected put: queue full", err.Error())
	require.ErrorIs(t, err, cause)

	code, ok := FatalCode(err)
	require.True(t, ok)
	require.Equal(t, CodeTransportRejected, code)
	_, ok = FatalCode(cause)
	require.False(t, ok)

	var buf bytes.Buffer
	logger, lerr := NewWithWriter(&buf, Config{Level: "debug", Encoder: JSONEncoder})
	require.NoError(t, lerr)
	logger.Error("abort", err.Field())
	require.True(t, strings.Contains(buf.String(), CodeTransportRejected))
}
