package server

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// Batch describes the requests coalesced into one rebuild.
type Batch struct {
	Count        int
	FirstReason  string
	LastReason   string
	FirstRequest time.Time
	LastRequest  time.Time
	// Cause is "quiet" when the quiet window elapsed and "max_delay" when
	// requests kept arriving until the maximum delay.
	Cause string
}

type rebuildRequest struct {
	reason string
	at     time.Time
}

// Debouncer coalesces bursts of rebuild requests:
//   - a rebuild starts once no request arrived for the quiet window
//   - a steady stream of requests cannot postpone it past the max delay
//   - requests arriving while a rebuild runs produce exactly one follow-up
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	requests chan rebuildRequest
}

// NewDebouncer validates the windows and returns a Debouncer.
func NewDebouncer(quiet, maxDelay time.Duration) (*Debouncer, error) {
	if quiet <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if maxDelay < quiet {
		return nil, ferrors.ValidationError("max delay must not be shorter than the quiet window").
			WithContext("quiet", quiet.String()).
			WithContext("max_delay", maxDelay.String()).
			Build()
	}
	return &Debouncer{quiet: quiet, maxDelay: maxDelay, requests: make(chan rebuildRequest, 64)}, nil
}

// Trigger requests a rebuild. It never blocks; when the queue is full a
// rebuild is already pending.
func (d *Debouncer) Trigger(reason string) {
	select {
	case d.requests <- rebuildRequest{reason: reason, at: time.Now()}:
	default:
	}
}

// Run delivers batches to fn until ctx is done. fn runs on the Run
// goroutine, so rebuilds never overlap.
func (d *Debouncer) Run(ctx context.Context, fn func(context.Context, Batch)) {
	quietTimer := time.NewTimer(d.quiet)
	quietTimer.Stop()
	maxTimer := time.NewTimer(d.maxDelay)
	maxTimer.Stop()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
		batch  *Batch
	)

	fire := func(cause string) {
		quietTimer.Stop()
		maxTimer.Stop()
		quietC, maxC = nil, nil
		b := *batch
		b.Cause = cause
		batch = nil
		fn(ctx, b)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.requests:
			if batch == nil {
				batch = &Batch{FirstReason: req.reason, FirstRequest: req.at}
				maxTimer.Reset(d.maxDelay)
				maxC = maxTimer.C
			}
			batch.Count++
			batch.LastReason = req.reason
			batch.LastRequest = req.at
			quietTimer.Reset(d.quiet)
			quietC = quietTimer.C
		case <-quietC:
			fire("quiet")
		case <-maxC:
			fire("max_delay")
		}
	}
}
