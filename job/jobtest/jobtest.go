// Package jobtest runs the bodies of PEs under tests.
package jobtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/log/logtest"
)

// Timeout bounds a job started by Run.
const Timeout = 10 * time.Second

// T collects the failed assertions of one PE body. It satisfies require.TestingT: a fatal
// assertion ends the body with an error, so the job shuts down instead of leaving the other
// PEs blocked until the deadline.
type T struct {
	rank int

	mu     sync.Mutex
	errors []string
}

type failNow struct{}

// Errorf records a failed assertion.
func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, fmt.Sprintf(format, args...))
}

// FailNow stops the body.
func (t *T) FailNow() {
	panic(failNow{})
}

// Helper is a no-op.
func (t *T) Helper() {}

func (t *T) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errors) == 0 {
		return nil
	}
	return fmt.Errorf("pe %d failed:\n%s", t.rank, strings.Join(t.errors, "\n"))
}

// Body adapts fn to job.RunLocal. Assertions failed on t are returned as the error of the PE.
func Body(fn func(*T, *job.PE) error) func(context.Context, *job.PE) error {
	return func(_ context.Context, pe *job.PE) (err error) {
		t := &T{rank: pe.Rank()}
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(failNow); !ok {
					panic(r)
				}
			}
			if terr := t.err(); terr != nil {
				err = terr
			}
		}()
		return fn(t, pe)
	}
}

// Run runs fn on every PE of a local job described by cfg, logging to tb.
func Run(tb testing.TB, cfg job.Config, fn func(*T, *job.PE) error) error {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	return job.RunLocal(ctx, cfg, Body(fn), job.WithLogger(logtest.New(tb)))
}
