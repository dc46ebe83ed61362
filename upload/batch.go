package upload

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/result"
	"github.com/imgvault/imgvault/utils/throttle"
	"github.com/imgvault/imgvault/utils/workerpool"
)

// ProgressEvent is one aggregate progress snapshot for a running batch.
// ItemResult is non-nil only on events triggered by an item settling.
type ProgressEvent struct {
	CompletedCount int
	TotalCount     int
	Percent        int
	ItemIndex      int
	ItemResult     result.Result[Receipt]
}

// Summary partitions a batch's results by their success flag.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// BatchResult carries per-item results and the derived summary. Success is
// true only when every item succeeded.
type BatchResult struct {
	Success bool
	Results []result.Result[Receipt]
	Summary Summary
}

// UploadBatch uploads all items and returns positional results plus a
// summary. Progress is delivered through onProgress (may be nil), throttled
// to the configured interval; the terminal 100% event is always delivered
// synchronously after all items settle. Individual failures never abort the
// batch.
func (b *Batcher) UploadBatch(ctx context.Context, items []Item, onProgress func(ProgressEvent)) *BatchResult {
	n := len(items)
	if n == 0 {
		if onProgress != nil {
			onProgress(ProgressEvent{TotalCount: 0, Percent: 100, ItemIndex: -1})
		}
		return &BatchResult{Success: true, Results: nil, Summary: Summary{}}
	}

	tracker := newTracker(items)

	var th *throttle.Throttler[ProgressEvent]
	emit := func(ev ProgressEvent) {}
	if onProgress != nil {
		th = throttle.New(b.throttleInterval, onProgress)
		emit = th.Call
	}

	tasks := make([]workerpool.Task[Receipt], n)
	for i := range items {
		idx := i
		item := items[i]
		id := uuid.NewString()
		tasks[idx] = func(taskCtx context.Context) result.Result[Receipt] {
			res := b.uploadOne(taskCtx, id, item, func(sent int64) {
				tracker.onBytes(idx, sent, emit)
			})
			tracker.onSettle(idx, res, emit)
			return res
		}
	}

	poolOpts := []workerpool.Option{workerpool.WithLimit(b.concurrency)}
	if b.log != nil {
		poolOpts = append(poolOpts, workerpool.WithLogger(b.log))
	}
	results := workerpool.Run(ctx, tasks, poolOpts...)

	summary := Summary{Total: n}
	for _, r := range results {
		if r.IsSuccess() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if onProgress != nil {
		th.Flush()
		th.Stop()
		onProgress(tracker.terminal())
	}

	if b.log != nil {
		b.log.Info("batch upload finished",
			log.Int("total", summary.Total),
			log.Int("succeeded", summary.Succeeded),
			log.Int("failed", summary.Failed))
	}

	return &BatchResult{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	}
}

// tracker aggregates byte-weighted progress across the batch. All state is
// guarded by mu; events are built and emitted under the lock so
// CompletedCount and Percent stay monotonic in emission order.
type tracker struct {
	mu        sync.Mutex
	sizes     []int64
	sent      []int64
	totalSize int64
	completed int
	total     int
}

func newTracker(items []Item) *tracker {
	t := &tracker{
		sizes: make([]int64, len(items)),
		sent:  make([]int64, len(items)),
		total: len(items),
	}
	for i, it := range items {
		t.sizes[i] = it.Size()
		t.totalSize += it.Size()
	}
	return t
}

// onBytes records cumulative bytes sent for one item.
func (t *tracker) onBytes(idx int, sent int64, emit func(ProgressEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sent > t.sizes[idx] {
		sent = t.sizes[idx]
	}
	if sent > t.sent[idx] {
		t.sent[idx] = sent
	}
	emit(ProgressEvent{
		CompletedCount: t.completed,
		TotalCount:     t.total,
		Percent:        t.percentLocked(),
		ItemIndex:      idx,
	})
}

// onSettle records one item's final result. A settled item counts its full
// size as sent whether it succeeded or failed, so the aggregate keeps moving
// past failed items.
func (t *tracker) onSettle(idx int, res result.Result[Receipt], emit func(ProgressEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[idx] = t.sizes[idx]
	t.completed++
	emit(ProgressEvent{
		CompletedCount: t.completed,
		TotalCount:     t.total,
		Percent:        t.percentLocked(),
		ItemIndex:      idx,
		ItemResult:     res,
	})
}

// terminal builds the final event, the only one that reports exactly 100
// for a non-degenerate batch.
func (t *tracker) terminal() ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ProgressEvent{
		CompletedCount: t.completed,
		TotalCount:     t.total,
		Percent:        100,
		ItemIndex:      -1,
	}
}

// percentLocked computes the byte-weighted aggregate, capped at 99 until
// every item settles. A zero-byte batch is defined as 100 immediately.
func (t *tracker) percentLocked() int {
	if t.totalSize == 0 {
		return 100
	}
	var sentTotal int64
	for _, s := range t.sent {
		sentTotal += s
	}
	pct := int(sentTotal * 100 / t.totalSize)
	if pct > 99 {
		pct = 99
	}
	return pct
}
