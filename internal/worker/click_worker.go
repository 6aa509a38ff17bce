package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ClickStore persists aggregated click counts.
type ClickStore interface {
	AddClicks(ctx context.Context, clicks map[string]int64) error
}

// ClickWorkerPool aggregates redirect clicks and flushes them in batches so
// that serving a redirect never waits on a storage write.
type ClickWorkerPool struct {
	store        ClickStore
	requestChan  chan string
	batchSize    int
	batchTimeout time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeMu      sync.RWMutex
	closed       bool
	shutdownOnce sync.Once
}

type Config struct {
	WorkerCount  int
	BufferSize   int
	BatchSize    int           // clicks per flush
	BatchTimeout time.Duration // max age of an unflushed click
}

func DefaultConfig() Config {
	return Config{
		WorkerCount:  2,
		BufferSize:   1024,
		BatchSize:    100,
		BatchTimeout: 2 * time.Second,
	}
}

func NewClickWorkerPool(store ClickStore, config Config) *ClickWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &ClickWorkerPool{
		store:        store,
		requestChan:  make(chan string, config.BufferSize),
		batchSize:    config.BatchSize,
		batchTimeout: config.BatchTimeout,
		workerCount:  config.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (p *ClickWorkerPool) Start() {
	log.Info().
		Int("workers", p.workerCount).
		Int("batchSize", p.batchSize).
		Dur("batchTimeout", p.batchTimeout).
		Msg("Starting click worker pool")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *ClickWorkerPool) worker(id int) {
	defer p.wg.Done()

	log.Debug().Int("workerID", id).Msg("Worker started")

	batch := make(map[string]int64)
	total := 0
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// Flushes use their own context so a cancelled pool still persists what it has.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.store.AddClicks(ctx, batch); err != nil {
			log.Error().
				Err(err).
				Int("workerID", id).
				Int("codes", len(batch)).
				Int("clicks", total).
				Msg("Failed to flush clicks")
		} else {
			log.Debug().
				Int("workerID", id).
				Int("codes", len(batch)).
				Int("clicks", total).
				Msg("Flushed clicks")
		}

		batch = make(map[string]int64)
		total = 0
	}

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timerC = nil
	}

	startTimer := func() {
		if timer == nil {
			timer = time.NewTimer(p.batchTimeout)
		} else {
			stopTimer()
			timer.Reset(p.batchTimeout)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-p.ctx.Done():
			log.Debug().Int("workerID", id).Msg("Worker shutting down")
			flush()
			stopTimer()
			return

		case code, ok := <-p.requestChan:
			if !ok {
				flush()
				stopTimer()
				return
			}

			if len(batch) == 0 {
				startTimer()
			}
			batch[code]++
			total++

			if total >= p.batchSize {
				flush()
				stopTimer()
			}

		case <-timerC:
			flush()
			timerC = nil
		}
	}
}

// Record queues one click for code. It never blocks: when the buffer is full
// or the pool is shut down the click is dropped.
func (p *ClickWorkerPool) Record(code string) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.requestChan <- code:
	default:
		log.Warn().Str("code", code).Msg("Click buffer is full, dropping click")
	}
}

// Shutdown stops accepting clicks and waits for workers to flush.
func (p *ClickWorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	p.shutdownOnce.Do(func() {
		log.Info().Msg("Shutting down click worker pool")

		p.closeMu.Lock()
		p.closed = true
		close(p.requestChan)
		p.closeMu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Info().Msg("Click worker pool shut down gracefully")
		case <-time.After(timeout):
			log.Warn().Msg("Click worker pool shutdown timeout, forcing shutdown")
			p.cancel()
			<-done
			shutdownErr = context.DeadlineExceeded
		}
		p.cancel()
	})

	return shutdownErr
}

// Stats reports the current queue backlog.
func (p *ClickWorkerPool) Stats() PoolStats {
	return PoolStats{
		QueueSize:   len(p.requestChan),
		QueueCap:    cap(p.requestChan),
		WorkerCount: p.workerCount,
	}
}

type PoolStats struct {
	QueueSize   int
	QueueCap    int
	WorkerCount int
}
