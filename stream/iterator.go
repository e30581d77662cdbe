package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/cenkalti/backoff/v4"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Opts defines options for NewIterator.
type Opts struct {
	// Kind labels log messages and metrics, e.g. "variants" or "reads".
	// Defaults to "stream".
	Kind string

	// Boundary selects which records are delivered. Defaults to Strict.
	Boundary ShardBoundary

	// Backoff configures the retry policy. Ignored if Policy is set.
	Backoff BackoffOpts

	// Policy, if non-nil, overrides Backoff. The iterator calls Reset on it
	// whenever an envelope carries records it had not seen before. It must
	// not be shared between iterators.
	Policy backoff.BackOff

	// IsRetryable classifies an open or receive error. Errors for which it
	// returns false stop the iterator immediately. If nil, every error is
	// retried. Errors observed after the context is done are never retried.
	IsRetryable func(error) bool
}

// DefaultOpts is the recommended configuration for NewIterator.
var DefaultOpts = Opts{
	Kind:     "stream",
	Boundary: Strict,
	Backoff:  DefaultBackoffOpts,
}

type iterState int

const (
	// The call is open and envelopes are being pulled.
	streaming iterState = iota
	// The call failed; the iterator will back off and reopen it.
	retrying
	// Terminal: the stream ended, or retries ran out, or Close was called.
	exhausted
)

// Iterator yields the response envelopes of one logical stream, reopening the
// underlying call after transport failures. Records are delivered exactly once
// and in server order. Thread compatible.
//
// Typical use:
//
//	it, err := stream.NewIterator(ctx, src, req, stream.DefaultOpts)
//	if err != nil { ... }
//	for it.Scan() {
//	  resp := it.Response()
//	  ...
//	}
//	if err := it.Close(); err != nil { ... }
type Iterator[Req, Resp, Rec any] struct {
	ctx    context.Context
	src    Source[Req, Resp, Rec]
	req    Req
	opts   Opts
	policy backoff.BackOff

	state  iterState
	stream Stream[Resp]
	resp   Resp
	err    error
	// failure is the error that moved the iterator into the retrying state.
	failure error

	// last is the last record delivered to the caller, valid iff hasLast.
	last    Rec
	hasLast bool
	// sentinel is the ID of the last record delivered before a failure. After
	// a reopen, records up to and including it are dropped.
	sentinel    string
	hasSentinel bool
}

// NewIterator opens a call for req and returns an iterator over its
// envelopes. If the call cannot be opened before the retry budget runs out,
// NewIterator returns the error and no iterator.
func NewIterator[Req, Resp, Rec any](ctx context.Context, src Source[Req, Resp, Rec], req Req, opts Opts) (*Iterator[Req, Resp, Rec], error) {
	if opts.Kind == "" {
		opts.Kind = DefaultOpts.Kind
	}
	policy := opts.Policy
	if policy == nil {
		policy = NewBackoff(opts.Backoff)
	}
	it := &Iterator[Req, Resp, Rec]{
		ctx:    ctx,
		src:    src,
		req:    req,
		opts:   opts,
		policy: policy,
	}
	s, err := it.open(req)
	if err != nil {
		return nil, err
	}
	it.stream = s
	return it, nil
}

// Request returns the request the iterator was created with.
func (it *Iterator[Req, Resp, Rec]) Request() Req {
	return it.req
}

// Scan advances to the next envelope. It returns false when the stream has
// ended or has failed; Err tells the two apart. Scan may block on the network
// and on retry delays.
//
// Envelopes holding only records delivered before a reopen are skipped.
// Envelopes left empty by the shard boundary are still returned. Only an
// envelope that delivers records resets the retry policy.
func (it *Iterator[Req, Resp, Rec]) Scan() bool {
	for {
		switch it.state {
		case exhausted:
			return false
		case retrying:
			if !it.reopen() {
				return false
			}
			continue
		}
		resp, err := it.stream.Recv()
		if err == io.EOF {
			it.finish(nil)
			return false
		}
		if err != nil {
			if !it.retryable(err) {
				it.finish(errors.E(err, fmt.Sprintf("stream %s: receive", it.opts.Kind)))
				return false
			}
			it.failure = err
			it.state = retrying
			continue
		}
		recs, ok := it.filter(it.src.Records(resp))
		if !ok {
			continue
		}
		if len(recs) > 0 {
			it.policy.Reset()
		}
		it.resp = it.src.WithRecords(resp, recs)
		return true
	}
}

// Response returns the current envelope, with the already-delivered and
// out-of-shard records removed.
//
// REQUIRES: the last call to Scan returned true.
func (it *Iterator[Req, Resp, Rec]) Response() Resp {
	return it.resp
}

// Err returns the error that stopped the iterator, or nil if the stream ended
// normally or is still running.
func (it *Iterator[Req, Resp, Rec]) Err() error {
	return it.err
}

// Close releases the underlying call. It may be called at any time, and more
// than once. It returns the value of Err.
func (it *Iterator[Req, Resp, Rec]) Close() error {
	it.finish(it.err)
	return it.err
}

// finish moves the iterator into its terminal state and releases the call.
func (it *Iterator[Req, Resp, Rec]) finish(err error) {
	if it.state != exhausted {
		it.state = exhausted
		it.err = err
	}
	it.release()
}

func (it *Iterator[Req, Resp, Rec]) release() {
	if it.stream == nil {
		return
	}
	if err := it.stream.Close(); err != nil {
		log.Debug.Printf("stream %s: close: %v", it.opts.Kind, err)
	}
	it.stream = nil
}

func (it *Iterator[Req, Resp, Rec]) retryable(err error) bool {
	if it.ctx.Err() != nil {
		return false
	}
	return it.opts.IsRetryable == nil || it.opts.IsRetryable(err)
}

// open starts a call for req, retrying until it succeeds or the policy runs
// out.
func (it *Iterator[Req, Resp, Rec]) open(req Req) (Stream[Resp], error) {
	kind := it.opts.Kind
	for {
		s, err := it.src.Open(it.ctx, req)
		if err == nil {
			StreamsOpened.WithLabelValues(kind).Inc()
			return s, nil
		}
		if !it.retryable(err) {
			return nil, errors.E(err, fmt.Sprintf("stream %s: open", kind))
		}
		d, ok := nextDelay(it.policy)
		if !ok {
			Exhausted.WithLabelValues(kind).Inc()
			log.Error.Printf("stream %s: giving up opening the call: %v", kind, err)
			return nil, errors.E(errors.Unavailable, fmt.Sprintf("stream %s: retry budget exhausted while opening", kind), err)
		}
		Retries.WithLabelValues(kind).Inc()
		log.Printf("stream %s: open failed, retrying in %v: %v", kind, d, err)
		sleep(it.ctx, d)
	}
}

// reopen backs off after a receive failure and restarts the call past the
// last delivered record. It returns false if the iterator became terminal.
func (it *Iterator[Req, Resp, Rec]) reopen() bool {
	kind := it.opts.Kind
	it.release()
	d, ok := nextDelay(it.policy)
	if !ok {
		Exhausted.WithLabelValues(kind).Inc()
		log.Error.Printf("stream %s: giving up after receive failure: %v", kind, it.failure)
		it.finish(errors.E(errors.Unavailable, fmt.Sprintf("stream %s: retry budget exhausted", kind), it.failure))
		return false
	}
	Retries.WithLabelValues(kind).Inc()
	log.Printf("stream %s: receive failed, reopening in %v: %v", kind, d, it.failure)
	sleep(it.ctx, d)

	req := it.resumeRequest()
	if it.hasLast {
		it.sentinel = it.src.RecordID(it.last)
		it.hasSentinel = true
	}
	s, err := it.open(req)
	if err != nil {
		it.finish(err)
		return false
	}
	it.stream = s
	it.failure = nil
	it.state = streaming
	return true
}

// resumeRequest returns the request used to reopen the call. It starts at the
// last delivered record if that record lies past the original start, and is
// the original request otherwise.
func (it *Iterator[Req, Resp, Rec]) resumeRequest() Req {
	if !it.hasLast {
		return it.req
	}
	lastStart := it.src.RecordStart(it.last)
	if it.src.RequestStart(it.req) < lastStart {
		log.Printf("stream %s: resuming at %d", it.opts.Kind, lastStart)
		return it.src.WithRequestStart(it.req, lastStart)
	}
	return it.req
}

// filter drops the replayed records that precede the sentinel, then the
// records outside the shard. It returns false if the envelope holds nothing
// past the sentinel.
func (it *Iterator[Req, Resp, Rec]) filter(recs []Rec) ([]Rec, bool) {
	kind := it.opts.Kind
	if it.hasSentinel {
		i := 0
		for ; i < len(recs); i++ {
			if it.src.RecordID(recs[i]) == it.sentinel {
				break
			}
		}
		if i == len(recs) {
			RecordsDeduplicated.WithLabelValues(kind).Add(float64(len(recs)))
			if log.At(log.Debug) {
				log.Debug.Printf("stream %s: dropping envelope of %d replayed records", kind, len(recs))
			}
			return nil, false
		}
		RecordsDeduplicated.WithLabelValues(kind).Add(float64(i + 1))
		if log.At(log.Debug) {
			log.Debug.Printf("stream %s: found resume point %s after %d replayed records", kind, it.sentinel, i+1)
		}
		recs = recs[i+1:]
		it.hasSentinel = false
		it.sentinel = ""
		if len(recs) == 0 {
			return nil, false
		}
	}

	start := it.src.RequestStart(it.req)
	kept := make([]Rec, 0, len(recs))
	for _, rec := range recs {
		if it.opts.Boundary.Keep(start, it.src.RecordStart(rec)) {
			kept = append(kept, rec)
		}
	}
	if n := len(recs) - len(kept); n > 0 {
		RecordsOutOfShard.WithLabelValues(kind).Add(float64(n))
	}
	if len(kept) > 0 {
		it.last = kept[len(kept)-1]
		it.hasLast = true
		RecordsDelivered.WithLabelValues(kind).Add(float64(len(kept)))
	}
	return kept, true
}
