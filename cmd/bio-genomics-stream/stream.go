package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/genomics/genomicspb"
	"github.com/grailbio/genomics/stream"
	"github.com/grailbio/genomics/transport"
	"github.com/grailbio/genomics/variantmerge"
	"google.golang.org/grpc"
)

type streamOpts struct {
	variantSetID  string
	referenceName string
	callSetIDs    []string
	// start and end delimit the region, [start, end).
	start, end int64
	window     int64
	// strategy is nil to write records as received.
	strategy    variantmerge.Strategy
	boundary    stream.ShardBoundary
	backoff     stream.BackoffOpts
	parallelism int
}

// windowRequests splits [opts.start, opts.end) into requests of opts.window
// bases.
func windowRequests(opts streamOpts) []*genomicspb.StreamVariantsRequest {
	var reqs []*genomicspb.StreamVariantsRequest
	for s := opts.start; s < opts.end; s += opts.window {
		e := s + opts.window
		if e > opts.end {
			e = opts.end
		}
		reqs = append(reqs, &genomicspb.StreamVariantsRequest{
			VariantSetID:  opts.variantSetID,
			ReferenceName: opts.referenceName,
			Start:         s,
			End:           e,
			CallSetIDs:    opts.callSetIDs,
		})
	}
	return reqs
}

// fetchWindow streams the variants of one window and merges them.
func fetchWindow(ctx context.Context, conn grpc.ClientConnInterface, req *genomicspb.StreamVariantsRequest, opts streamOpts) ([]*genomicspb.Variant, error) {
	it, err := transport.NewVariantIterator(ctx, conn, req, stream.Opts{
		Kind:     "variants",
		Boundary: opts.boundary,
		Backoff:  opts.backoff,
	})
	if err != nil {
		return nil, err
	}
	var recs []*genomicspb.Variant
	for it.Scan() {
		recs = append(recs, it.Response().Variants...)
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	if opts.strategy == nil {
		return recs, nil
	}
	var merged []*genomicspb.Variant
	opts.strategy.Merge(req.Start, recs, func(v *genomicspb.Variant) {
		merged = append(merged, v)
	})
	return merged, nil
}

// streamVariants fetches the region described by opts, one resumable stream
// per window, and writes the results to w in window order.
func streamVariants(ctx context.Context, conn grpc.ClientConnInterface, opts streamOpts, w *variantWriter) error {
	if opts.window <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("window size must be positive, got %d", opts.window))
	}
	reqs := windowRequests(opts)
	parallelism := opts.parallelism
	if parallelism <= 0 || parallelism > len(reqs) {
		parallelism = len(reqs)
	}
	if parallelism == 0 {
		return nil
	}
	log.Printf("streaming %s:%s [%d,%d) in %d windows, parallelism %d",
		opts.variantSetID, opts.referenceName, opts.start, opts.end, len(reqs), parallelism)

	// The first failure cancels the windows still being fetched.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		queue = syncqueue.NewOrderedQueue(2 * parallelism)
		err   errors.Once
		wg    sync.WaitGroup
		n     int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			entry, ok, e := queue.Next()
			if e != nil || !ok {
				return
			}
			for _, v := range entry.([]*genomicspb.Variant) {
				if e := w.Write(v); e != nil {
					err.Set(e)
					cancel()
					queue.Close(e) // nolint: errcheck
					return
				}
				n++
			}
		}
	}()
	// Worker i handles windows i, i+parallelism, ..., so the smallest pending
	// window can always be inserted.
	e := traverse.Each(parallelism, func(worker int) error {
		for i := worker; i < len(reqs); i += parallelism {
			recs, e := fetchWindow(ctx, conn, reqs[i], opts)
			if e != nil {
				e = errors.E(e, fmt.Sprintf("window [%d,%d)", reqs[i].Start, reqs[i].End))
				err.Set(e)
				cancel()
				queue.Close(e) // nolint: errcheck
				return e
			}
			if e := queue.Insert(i, recs); e != nil {
				return e
			}
		}
		return nil
	})
	err.Set(e)
	if e == nil {
		err.Set(queue.Close(nil))
	}
	wg.Wait()
	if err.Err() == nil {
		log.Printf("wrote %d variants", n)
	}
	return err.Err()
}
