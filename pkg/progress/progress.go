// Package progress decouples step-by-step reporting from the analyze
// flow. The orchestrator publishes stage events; listeners decide what
// to do with them.
package progress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Stage identifies a step of the analyze flow.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageEncode     Stage = "encode"
	StageRequest    Stage = "request"
	StageParse      Stage = "parse"
	StageDone       Stage = "done"
)

// Event is one progress notification.
type Event struct {
	Stage     Stage
	Message   string
	Timestamp time.Time
}

// Reporter receives progress events.
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(event Event)

// Report calls the wrapped function.
func (f ReporterFunc) Report(event Event) {
	f(event)
}

// Nop is a Reporter that discards every event.
var Nop Reporter = ReporterFunc(func(Event) {})

// LogReporter logs progress events through logrus.
type LogReporter struct {
	logger *logrus.Logger
}

// NewLogReporter creates a Reporter that logs each stage at debug level.
func NewLogReporter(logger *logrus.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the event.
func (r *LogReporter) Report(event Event) {
	r.logger.WithFields(logrus.Fields{
		"stage": event.Stage,
	}).Debug(event.Message)
}

// Publisher fans events out to multiple reporters. Safe for concurrent
// use; a panicking reporter never breaks the flow.
type Publisher struct {
	mu        sync.RWMutex
	reporters []Reporter
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe adds a reporter. Nil reporters are ignored.
func (p *Publisher) Subscribe(r Reporter) {
	if r == nil {
		return
	}
	p.mu.Lock()
	p.reporters = append(p.reporters, r)
	p.mu.Unlock()
}

// Report delivers an event to every subscribed reporter.
func (p *Publisher) Report(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	reporters := make([]Reporter, len(p.reporters))
	copy(reporters, p.reporters)
	p.mu.RUnlock()

	for _, r := range reporters {
		func() {
			defer func() {
				_ = recover()
			}()
			r.Report(event)
		}()
	}
}
