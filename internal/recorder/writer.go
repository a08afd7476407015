package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/metrics"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/rs/zerolog"
)

const writeTimeout = 10 * time.Second

// job is a unit of work for the writer. Every job carries the full current
// timeline, so a newer job always supersedes an older pending one.
type job struct {
	timeline activity.Timeline
	write    bool // persist timeline (or clear when clear is set)
	clear    bool
	publish  bool
	waiters  []chan<- error
}

// merge folds next into j. The newer timeline wins; write and publish
// requests accumulate so nothing asked for is skipped.
func (j *job) merge(next job) {
	j.timeline = next.timeline
	j.clear = next.clear
	j.write = j.write || next.write
	j.publish = j.publish || next.publish
	j.waiters = append(j.waiters, next.waiters...)
}

// writer persists and publishes snapshots on a single goroutine, in
// submission order. Only the latest pending job is kept.
type writer struct {
	store      storage.TimingStore
	publishers []storage.Publisher
	logger     zerolog.Logger

	mu      sync.Mutex
	pending *job
	closed  bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func newWriter(store storage.TimingStore, publishers []storage.Publisher, logger zerolog.Logger) *writer {
	w := &writer{
		store:      store,
		publishers: publishers,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go w.loop()
	return w
}

// submit queues j, merging it into any job that has not started yet.
func (w *writer) submit(j job) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		for _, ch := range j.waiters {
			ch <- errWriterClosed
		}
		return
	}
	if w.pending == nil {
		w.pending = &j
	} else {
		w.pending.merge(j)
	}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// close runs the remaining pending job and stops the writer.
func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done
}

func (w *writer) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.runPending()
		case <-w.stop:
			w.runPending()
			return
		}
	}
}

func (w *writer) runPending() {
	w.mu.Lock()
	j := w.pending
	w.pending = nil
	w.mu.Unlock()

	if j == nil {
		return
	}

	err := w.execute(j)
	for _, ch := range j.waiters {
		ch <- err
	}
}

func (w *writer) execute(j *job) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if j.write {
		start := time.Now()
		if j.clear {
			err = w.store.Clear(ctx)
		} else {
			err = w.store.Save(ctx, j.timeline)
		}
		metrics.PersistDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.PersistTotal.WithLabelValues("error").Inc()
			w.logger.Error().Err(err).Bool("clear", j.clear).Msg("Failed to persist timeline")
		} else {
			metrics.PersistTotal.WithLabelValues("ok").Inc()
		}
	}

	if j.publish {
		for _, p := range w.publishers {
			if perr := p.Publish(ctx, j.timeline); perr != nil {
				w.logger.Warn().Err(perr).Msg("Failed to publish snapshot")
			}
		}
	}

	return err
}
