package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BemoBit/po-translator/backend"
	"github.com/BemoBit/po-translator/cache"
	"github.com/BemoBit/po-translator/logger"
)

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Workers is the concurrency degree (min 1, default 3).
	Workers int
	// Backend performs remote translation on cache misses.
	Backend backend.Translator
	// Cache deduplicates identical requests across tasks and runs.
	Cache *cache.Store
	// SourceLang / TargetLang are the language pair for every task.
	SourceLang string
	TargetLang string
	// RequestDelay spaces out backend invocations across all workers
	// through a shared limiter; zero disables pacing.
	RequestDelay time.Duration
	// RequestTimeout bounds each backend call (default 30s).
	RequestTimeout time.Duration
	// QueueSize is the task/result channel buffer (default 16).
	QueueSize int
}

// Pool runs a fixed set of workers that pull tasks, consult the cache,
// call the backend on a miss, and emit results. Workers observe
// cancellation at every pull; an in-flight backend call is never
// aborted, the worker finishes it and then exits.
type Pool struct {
	cfg     PoolConfig
	coord   *Coordinator
	tasks   chan Task
	results chan Result
	limiter *rate.Limiter

	wg        sync.WaitGroup
	closeOnce sync.Once
	started   bool
}

// NewPool builds a pool; Start launches the workers.
func NewPool(cfg PoolConfig, coord *Coordinator) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}

	p := &Pool{
		cfg:     cfg,
		coord:   coord,
		tasks:   make(chan Task, cfg.QueueSize),
		results: make(chan Result, cfg.QueueSize),
	}
	if cfg.RequestDelay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}
	return p
}

// Start launches the workers plus a monitor that closes the result
// channel once every worker has exited, which is the pool's drained
// signal.
func (p *Pool) Start() {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Dispatch queues a task. It returns false without queuing when
// cancellation has been requested.
func (p *Pool) Dispatch(t Task) bool {
	select {
	case <-p.coord.Done():
		return false
	case p.tasks <- t:
		return true
	}
}

// Results is the channel of completed task results. It is closed when
// the pool is fully drained.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close signals workers to exit after draining queued tasks.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.tasks) })
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		if p.coord.Cancelled() {
			return
		}
		select {
		case <-p.coord.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			p.results <- p.process(id, t)
		}
	}
}

// process resolves one task: empty text passes through, then cache,
// then backend. Backend failures and panics degrade to the source text
// and never terminate the worker; degraded outcomes are not cached so
// a later run can retry them.
func (p *Pool) process(id int, t Task) (res Result) {
	res = Result{EntryIndex: t.EntryIndex, PluralIndex: t.PluralIndex, Text: t.Text}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("worker %d: unexpected failure on entry %d: %v", id, t.EntryIndex, r)
			res = Result{EntryIndex: t.EntryIndex, PluralIndex: t.PluralIndex, Text: t.Text, Degraded: true}
		}
	}()

	if strings.TrimSpace(t.Text) == "" {
		return res
	}

	if hit, ok := p.cfg.Cache.Lookup(t.Text, p.cfg.SourceLang, p.cfg.TargetLang); ok {
		res.Text = hit
		res.FromCache = true
		return res
	}

	if p.limiter != nil {
		_ = p.limiter.Wait(context.Background())
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RequestTimeout)
	defer cancel()

	translated, err := p.cfg.Backend.Translate(ctx, t.Text, p.cfg.SourceLang, p.cfg.TargetLang)
	if err != nil {
		logger.Warnf("worker %d: %v (keeping source text for entry %d)", id, err, t.EntryIndex)
		res.Degraded = true
		return res
	}

	p.cfg.Cache.Store(t.Text, translated, p.cfg.SourceLang, p.cfg.TargetLang)
	res.Text = translated
	return res
}
