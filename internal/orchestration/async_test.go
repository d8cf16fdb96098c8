package orchestration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll_Empty(t *testing.T) {
	t.Parallel()
	require.NoError(t, RunAll(context.Background(), nil))
}

func TestRunAll_AllSucceed(t *testing.T) {
	t.Parallel()
	var count atomic.Int32
	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { count.Add(1); return nil }},
		{Name: "b", Func: func(context.Context) error { count.Add(1); return nil }},
		{Name: "c", Func: func(context.Context) error { count.Add(1); return nil }},
	}

	require.NoError(t, RunAll(context.Background(), tasks))
	assert.Equal(t, int32(3), count.Load())
}

func TestRunAll_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	errA := errors.New("a broke")
	errC := errors.New("c broke")
	tasks := []Task{
		{Name: "c", Func: func(context.Context) error { return errC }},
		{Name: "b", Func: func(context.Context) error { return nil }},
		{Name: "a", Func: func(context.Context) error { return errA }},
	}

	err := RunAll(context.Background(), tasks)
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Failures, 2)
	// Failures are sorted by name regardless of completion order.
	assert.Equal(t, "a", agg.Failures[0].Name)
	assert.Equal(t, "c", agg.Failures[1].Name)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
}

func TestRunAll_WaitsForSlowTasks(t *testing.T) {
	t.Parallel()
	var finished atomic.Bool
	tasks := []Task{
		{Name: "fast", Func: func(context.Context) error { return errors.New("fast failure") }},
		{Name: "slow", Func: func(context.Context) error {
			time.Sleep(50 * time.Millisecond)
			finished.Store(true)
			return nil
		}},
	}

	err := RunAll(context.Background(), tasks)
	require.Error(t, err)
	assert.True(t, finished.Load(), "RunAll returned before all tasks completed")
}

func TestRunAll_RecoversPanic(t *testing.T) {
	t.Parallel()
	tasks := []Task{
		{Name: "ok", Func: func(context.Context) error { return nil }},
		{Name: "boom", Func: func(context.Context) error { panic("unexpected state") }},
	}

	err := RunAll(context.Background(), tasks)
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Failures, 1)
	assert.Equal(t, "boom", agg.Failures[0].Name)
	assert.Contains(t, agg.Failures[0].Err.Error(), "panic")
}

func TestAggregateError_SingleFailureMessage(t *testing.T) {
	t.Parallel()
	err := &AggregateError{Failures: []TaskFailure{{Name: "jobset", Err: errors.New("apply failed")}}}
	assert.Equal(t, "task jobset failed: apply failed", err.Error())
}

func TestAggregateError_MultiFailureMessage(t *testing.T) {
	t.Parallel()
	err := &AggregateError{Failures: []TaskFailure{
		{Name: "appwrapper", Err: errors.New("timeout")},
		{Name: "jobset", Err: errors.New("apply failed")},
	}}
	msg := err.Error()
	assert.Contains(t, msg, "2 tasks failed:")
	assert.Contains(t, msg, "appwrapper: timeout")
	assert.Contains(t, msg, "jobset: apply failed")
}

func TestBackground_Success(t *testing.T) {
	t.Parallel()
	h := Background(context.Background(), "image load", func(context.Context) error { return nil })
	require.NoError(t, h.Wait())
}

func TestBackground_WrapsError(t *testing.T) {
	t.Parallel()
	base := errors.New("pull denied")
	h := Background(context.Background(), "image load", func(context.Context) error { return base })

	err := h.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "image load task failed")
}

func TestBackground_RecoversPanic(t *testing.T) {
	t.Parallel()
	h := Background(context.Background(), "loader", func(context.Context) error { panic("nil map") })

	err := h.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}
