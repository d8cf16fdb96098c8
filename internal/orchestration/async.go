// Package orchestration runs named tasks concurrently and aggregates their
// failures, so callers see every broken dependency in a single error instead
// of the first one that happened to finish.
package orchestration

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// TaskFailure records one failed task inside an AggregateError.
type TaskFailure struct {
	Name string
	Err  error
}

// AggregateError collects every task failure from a RunAll call. Failures are
// sorted by task name so the report is stable regardless of completion order.
type AggregateError struct {
	Failures []TaskFailure
}

func (e *AggregateError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("task %s failed: %v", f.Name, f.Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d tasks failed:", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Name, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual task errors to errors.Is / errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// RunAll executes all tasks in parallel and waits for every one of them to
// finish. A panicking task is converted into a failure rather than taking the
// process down. The returned error is nil when all tasks succeed, otherwise an
// *AggregateError listing every failure.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "cert-manager", Func: installCertManager},
//	    {Name: "jobset", Func: installJobSet},
//	}
//	if err := RunAll(ctx, tasks); err != nil {
//	    return err
//	}
func RunAll(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}

	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					resultChan <- result{name: task.Name, err: fmt.Errorf("panic: %v", r)}
				}
			}()
			log.Printf("[%s] Starting at %s", task.Name, time.Now().Format("15:04:05"))
			err := task.Func(ctx)
			if err == nil {
				log.Printf("[%s] Completed at %s", task.Name, time.Now().Format("15:04:05"))
			}
			resultChan <- result{name: task.Name, err: err}
		}()
	}

	var failures []TaskFailure
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil {
			failures = append(failures, TaskFailure{Name: res.name, Err: res.err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
	return &AggregateError{Failures: failures}
}

// Handle tracks a task started with Background.
type Handle struct {
	name string
	done chan error
}

// Background starts fn in its own goroutine and returns a Handle to join it
// later. Panics are converted into errors the same way RunAll does.
func Background(ctx context.Context, name string, fn func(context.Context) error) *Handle {
	h := &Handle{name: name, done: make(chan error, 1)}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.done <- fmt.Errorf("panic: %v", r)
			}
		}()
		h.done <- fn(ctx)
	}()
	return h
}

// Wait blocks until the background task finishes and returns its error, if
// any, wrapped with the task name.
func (h *Handle) Wait() error {
	if err := <-h.done; err != nil {
		return fmt.Errorf("%s task failed: %w", h.name, err)
	}
	return nil
}
