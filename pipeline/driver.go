package pipeline

import (
	"fmt"
	"time"

	"github.com/BemoBit/po-translator/cache"
	"github.com/BemoBit/po-translator/checkpoint"
	"github.com/BemoBit/po-translator/logger"
	"github.com/BemoBit/po-translator/pofile"
)

// Options tunes the driver.
type Options struct {
	// BatchSize is how many tasks are dispatched per batch (default 10).
	BatchSize int
	// SaveInterval checkpoints after this many merged results
	// (default 50).
	SaveInterval int
	// Retranslate includes already-translated fields in extraction.
	Retranslate bool
	// TargetLang updates the catalog Language header before the run.
	TargetLang string
	// FinalSaveTimeout bounds the wait for the final checkpoint
	// (default 30s); past it the save continues in the background.
	FinalSaveTimeout time.Duration
	// OnProgress is called after each batch is merged.
	OnProgress func(done, total int)
}

// Summary is the outcome of a run.
type Summary struct {
	// Total tasks extracted from the catalog.
	Total int
	// Translated results merged (including cached and degraded ones).
	Translated int
	// FromCache results served without a backend call.
	FromCache int
	// Degraded results resolved to the source text after failure.
	Degraded int
	// Abandoned tasks dispatched but never completed because of
	// cancellation.
	Abandoned int
	// Cancelled reports cooperative cancellation.
	Cancelled bool
}

// Driver orchestrates extraction, batched dispatch, merge and
// checkpointing for one catalog. It is the only writer of the
// in-memory catalog; workers communicate with it through the pool's
// channels only.
type Driver struct {
	catalog *pofile.File
	pool    *Pool
	store   *cache.Store
	ckpt    *checkpoint.Manager
	opts    Options
}

// NewDriver wires a driver. The pool must not be started yet.
func NewDriver(cat *pofile.File, pool *Pool, store *cache.Store, ckpt *checkpoint.Manager, opts Options) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = 50
	}
	if opts.FinalSaveTimeout <= 0 {
		opts.FinalSaveTimeout = 30 * time.Second
	}
	return &Driver{catalog: cat, pool: pool, store: store, ckpt: ckpt, opts: opts}
}

// Run executes the pipeline to completion or cooperative cancellation.
// Whatever has been merged into the catalog before any failure is
// persisted by a final checkpoint; that is the resumability guarantee.
func (d *Driver) Run(coord *Coordinator) (sum Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("pipeline failed unexpectedly: %v", r)
			if cerr := d.ckpt.Checkpoint(d.catalog, true); cerr != nil {
				logger.Errorf("%v", cerr)
			}
			if ferr := d.store.Flush(); ferr != nil {
				logger.Warnf("cache flush: %v", ferr)
			}
			err = fmt.Errorf("pipeline failed unexpectedly: %v", r)
		}
	}()

	tasks := Extract(d.catalog, d.opts.Retranslate)
	sum.Total = len(tasks)

	if len(tasks) == 0 {
		if serr := d.ckpt.SaveCanonical(d.catalog); serr != nil {
			return sum, serr
		}
		return sum, nil
	}

	if d.opts.TargetLang != "" && d.catalog.HeaderField("Language") != "" {
		d.catalog.SetHeaderField("Language", d.opts.TargetLang)
	}

	d.pool.Start()
	sinceCheckpoint := 0

	for _, batch := range batches(tasks, d.opts.BatchSize) {
		if coord.Cancelled() {
			sum.Cancelled = true
			break
		}

		// Dispatch from a side goroutine while collecting here, so a
		// batch larger than the pool's channel buffers cannot wedge
		// with workers blocked on a full result channel. Under
		// cancellation the result channel closes once in-flight work
		// has drained; anything still queued is accounted abandoned.
		dispatchDone := make(chan int, 1)
		go func(batch []Task, done chan<- int) {
			n := 0
			for _, t := range batch {
				if !d.pool.Dispatch(t) {
					break
				}
				n++
			}
			done <- n
		}(batch, dispatchDone)

		dispatched := -1
		collected := 0
		drained := false
		for !drained && (dispatched < 0 || collected < dispatched) {
			select {
			case n := <-dispatchDone:
				dispatched = n
				dispatchDone = nil
			case r, ok := <-d.pool.Results():
				if !ok {
					drained = true
					break
				}
				Apply(d.catalog, r)
				collected++
				sum.Translated++
				sinceCheckpoint++
				if r.FromCache {
					sum.FromCache++
				}
				if r.Degraded {
					sum.Degraded++
				}
			}
		}
		if dispatched < 0 {
			// Workers only drain without a count when cancellation
			// unblocked the dispatcher, so this receive is immediate.
			dispatched = <-dispatchDone
		}
		if dispatched < len(batch) {
			sum.Cancelled = true
		}
		sum.Abandoned += dispatched - collected

		if d.opts.OnProgress != nil {
			d.opts.OnProgress(sum.Translated, sum.Total)
		}
		if coord.Cancelled() {
			sum.Cancelled = true
			break
		}

		if sinceCheckpoint >= d.opts.SaveInterval {
			if cerr := d.ckpt.Checkpoint(d.catalog, false); cerr != nil {
				logger.Errorf("%v", cerr)
			}
			sinceCheckpoint = 0
		}
	}

	if sum.Cancelled {
		coord.MarkDraining()
	}
	d.pool.Close()
	d.pool.Wait()
	coord.MarkStopped()

	// The final checkpoint runs to completion once started; a second
	// interrupt cannot abort it. We only bound how long we wait here.
	select {
	case cerr := <-d.ckpt.FinalizeAsync(d.catalog):
		if cerr != nil {
			err = cerr
		}
	case <-time.After(d.opts.FinalSaveTimeout):
		logger.Warnf("final save still running after %s, letting it finish in the background", d.opts.FinalSaveTimeout)
	}

	if ferr := d.store.Flush(); ferr != nil {
		logger.Warnf("cache flush: %v", ferr)
	}
	return sum, err
}

// batches splits tasks into fixed-size slices preserving extraction
// order.
func batches(tasks []Task, size int) [][]Task {
	var out [][]Task
	for start := 0; start < len(tasks); start += size {
		end := start + size
		if end > len(tasks) {
			end = len(tasks)
		}
		out = append(out, tasks[start:end])
	}
	return out
}
