// Package fanout dispatches one notification per recipient address,
// concurrently, and always joins into an aggregate report. Partial
// failure is data, not an error: a dead address must never roll back
// or repeat the lifecycle transition that triggered the batch.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"memorylane.app/core/appview/email"
)

type Failure struct {
	Address string `json:"address"`
	Err     string `json:"error"`
}

type Report struct {
	Sent   int       `json:"sent"`
	Failed []Failure `json:"failed,omitempty"`
}

type Fanout struct {
	Sender email.Sender
	Logger *slog.Logger

	// Concurrency bounds in-flight dispatches; zero means a sane
	// default. Timeout bounds each individual dispatch so one hung
	// send cannot stall the rest of the batch.
	Concurrency int
	Timeout     time.Duration

	// Attempts is the per-dispatch retry budget for transient channel
	// errors. This is retry within one dispatch, not a re-send of the
	// batch; a failed address stays failed until some later unlock of
	// some other capsule.
	Attempts uint
}

const (
	defaultConcurrency = 8
	defaultTimeout     = 15 * time.Second
	defaultAttempts    = 3
)

// Dispatch sends every email and returns the aggregate report. It
// never returns an error: zero recipients is a report of zero sent,
// and per-address failures are collected, logged and returned.
func (f *Fanout) Dispatch(ctx context.Context, emails []email.Email) Report {
	if len(emails) == 0 {
		return Report{}
	}

	concurrency := f.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := f.Attempts
	if attempts == 0 {
		attempts = defaultAttempts
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report Report
	)
	sem := make(chan struct{}, concurrency)

	for _, msg := range emails {
		wg.Add(1)
		sem <- struct{}{}
		go func(msg email.Email) {
			defer wg.Done()
			defer func() { <-sem }()

			err := retry.Do(
				func() error {
					sendCtx, cancel := context.WithTimeout(ctx, timeout)
					defer cancel()
					return f.Sender.Send(sendCtx, msg)
				},
				retry.Attempts(attempts),
				retry.DelayType(retry.BackOffDelay),
				retry.Context(ctx),
				retry.LastErrorOnly(true),
			)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.Logger.Error("notification dispatch failed", "to", msg.To, "err", err)
				report.Failed = append(report.Failed, Failure{Address: msg.To, Err: err.Error()})
				return
			}
			report.Sent++
		}(msg)
	}

	wg.Wait()
	return report
}
