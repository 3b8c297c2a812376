package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var errWriterClosed = errors.New("logger: writer closed")

// logEntry is either a formatted line or, when ack is set, a flush barrier.
type logEntry struct {
	line []byte
	ack  chan error
}

// asyncWriter fans formatted lines out to its sinks from a single goroutine,
// so lines keep their order across sinks.
type asyncWriter struct {
	entries chan logEntry
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
	sinks   []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		entries: make(chan logEntry, 256),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for e := range w.entries {
		if e.ack != nil {
			e.ack <- w.flush()
			continue
		}
		w.write(e.line)
		// flush once the burst is drained
		if len(w.entries) == 0 {
			w.remember(w.flush())
		}
	}
	w.remember(w.flush())
}

// Write queues a copy of p. It blocks while the queue is full rather than drop lines.
func (w *asyncWriter) Write(p []byte) error {
	if w.closed.Load() {
		return errWriterClosed
	}
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.entries <- logEntry{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns after every line queued before it has reached the sinks.
func (w *asyncWriter) Flush() error {
	if w.closed.Load() {
		return w.failure()
	}
	ack := make(chan error, 1)
	w.entries <- logEntry{ack: ack}
	return <-ack
}

// Close drains the queue and reports the first write error seen.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		w.closed.Store(true)
		close(w.entries)
	})
	<-w.done
	return w.failure()
}

func (w *asyncWriter) write(line []byte) {
	for _, sink := range w.sinks {
		if _, err := sink.Write(line); err != nil {
			w.remember(err)
			return
		}
	}
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) remember(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
