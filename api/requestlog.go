package api

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RequestOutcome is the record of one network call, consumed only by
// the request log.
type RequestOutcome struct {
	Time     time.Time
	Endpoint string
	Latency  time.Duration
	Code     string
}

// RequestLog appends one line per request outcome to a persistent
// append-only file. Writes are queued and flushed off the request path,
// so logging never adds latency to a lookup; enqueueing drops the
// record when the queue is full and write failures are swallowed.
// Logging is diagnostic and must never fail a request.
type RequestLog struct {
	mu     sync.Mutex
	ch     chan RequestOutcome
	done   chan struct{}
	file   *os.File
	closed bool
}

// NewRequestLog opens (creating directories as needed) the append-only
// log at path and starts the writer goroutine.
func NewRequestLog(path string) (*RequestLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	l := &RequestLog{
		ch:   make(chan RequestOutcome, 256),
		done: make(chan struct{}),
		file: file,
	}
	go l.run()
	return l, nil
}

// Record enqueues one outcome. Non-blocking: the record is dropped when
// the queue is full or the log is closed. The mutex spans the closed
// check and the send so a concurrent Close can never close the channel
// between them.
func (l *RequestLog) Record(outcome RequestOutcome) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- outcome:
	default:
	}
}

// Close drains queued records and closes the file. Safe to call
// concurrently with Record and more than once.
func (l *RequestLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	<-l.done
	return l.file.Close()
}

func (l *RequestLog) run() {
	defer close(l.done)
	for outcome := range l.ch {
		line := fmt.Sprintf("%s GET %s elapsed_ms=%d outcome=%s\n",
			outcome.Time.Format(time.RFC3339),
			outcome.Endpoint,
			outcome.Latency.Milliseconds(),
			outcome.Code,
		)
		// Best effort only.
		_, _ = l.file.WriteString(line)
	}
}
