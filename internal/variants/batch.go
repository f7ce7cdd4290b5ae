package variants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-gallery/internal/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = 100 * time.Millisecond
)

// Pauser blocks until batch work may continue. *memory.Monitor satisfies it.
type Pauser interface {
	Wait(ctx context.Context) error
}

// BatchOptions tunes BatchProcess.
type BatchOptions struct {
	// Size is the group size. Zero selects DefaultBatchSize.
	Size int
	// Delay is the pause between groups. It is not applied after the last.
	Delay time.Duration
	// OnProgress is called after each group with the number of sources
	// attempted so far.
	OnProgress func(processed, total int)
	// Pauser, when set, is awaited before each group.
	Pauser Pauser
}

// DefaultBatchOptions returns a group size of 3 and a 100ms delay.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{Size: DefaultBatchSize, Delay: DefaultBatchDelay}
}

// BatchFailure records one source that did not produce a variant.
type BatchFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// BatchResult tallies a batch run. Succeeded+Failed equals the number of
// sources attempted.
type BatchResult struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// BatchProcess produces the class variant of every source, a group at a
// time. Each member of a group runs concurrently and a failure never stops
// its siblings; per-source failures are collected in the result. An error
// is returned only for invalid options, a cancelled ctx, or a stopped
// service or pauser, together with the partial result.
func (s *Service) BatchProcess(ctx context.Context, sources []string, class SizeClass, opts BatchOptions) (BatchResult, error) {
	if _, err := Spec(class); err != nil {
		return BatchResult{}, err
	}
	if opts.Size == 0 {
		opts.Size = DefaultBatchSize
	}
	if opts.Size < 0 {
		return BatchResult{}, fmt.Errorf("%w: batch size %d", ErrInvalidArgument, opts.Size)
	}
	if opts.Delay < 0 {
		return BatchResult{}, fmt.Errorf("%w: batch delay %v", ErrInvalidArgument, opts.Delay)
	}

	res := BatchResult{Total: len(sources)}
	err := s.runBatches(ctx, sources, class, opts, &res)

	status := "complete"
	if err != nil {
		status = "aborted"
		log.Warn("batch of %d %s variants aborted after %d: %v",
			res.Total, class, res.Succeeded+res.Failed, err)
	} else {
		log.Debug("batch of %d %s variants done: %d ok, %d failed",
			res.Total, class, res.Succeeded, res.Failed)
	}
	metrics.BatchRunsTotal.WithLabelValues(status).Inc()
	return res, err
}

func (s *Service) runBatches(ctx context.Context, sources []string, class SizeClass, opts BatchOptions, res *BatchResult) error {
	processed := 0
	for start := 0; start < len(sources); start += opts.Size {
		if opts.Pauser != nil {
			if err := opts.Pauser.Wait(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		group := sources[start:min(start+opts.Size, len(sources))]
		errs := make([]error, len(group))

		var g errgroup.Group
		for i, src := range group {
			g.Go(func() error {
				_, errs[i] = s.Ensure(ctx, src, class)
				return nil
			})
		}
		_ = g.Wait()

		// A cancelled wait says nothing about the source itself.
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, err := range errs {
			if errors.Is(err, ErrStopped) {
				return err
			}
			if err != nil {
				res.Failed++
				res.Failures = append(res.Failures, BatchFailure{Source: group[i], Error: err.Error()})
				metrics.BatchItemsTotal.WithLabelValues("error").Inc()
				continue
			}
			res.Succeeded++
			metrics.BatchItemsTotal.WithLabelValues("success").Inc()
		}

		processed += len(group)
		if opts.OnProgress != nil {
			opts.OnProgress(processed, len(sources))
		}

		if processed < len(sources) && opts.Delay > 0 {
			timer := time.NewTimer(opts.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	return nil
}
