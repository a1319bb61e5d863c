package bitjit

import (
	"sync"
	"time"
)

// Event marks a phase boundary of a query.
type Event uint8

const (
	// EventCompileStart fires before compilation begins.
	EventCompileStart Event = iota
	// EventCompileDone fires after compilation, successful or not.
	EventCompileDone
	// EventExecuteDone fires after the compiled code ran over every row.
	EventExecuteDone
)

func (e Event) String() string {
	switch e {
	case EventCompileStart:
		return "compile_start"
	case EventCompileDone:
		return "compile_done"
	case EventExecuteDone:
		return "execute_done"
	default:
		return "unknown"
	}
}

// EventInfo carries the details of an event. Fields that do not apply to
// an event are zero.
type EventInfo struct {
	// Elapsed is the duration of the phase that just finished.
	Elapsed time.Duration
	// Compile describes the compiled code (EventCompileDone).
	Compile CompileStats
	// Rows is the number of row positions evaluated (EventExecuteDone).
	Rows uint32
	// Matches is the number of results appended (EventExecuteDone).
	Matches int
	// Err is the failure that ended the phase, if any.
	Err error
}

// QueryInstrumentation receives phase events from Run.
type QueryInstrumentation interface {
	Record(ev Event, info EventInfo)
}

// NoopInstrumentation discards every event.
type NoopInstrumentation struct{}

// Record implements QueryInstrumentation.
func (NoopInstrumentation) Record(Event, EventInfo) {}

// QueryData summarizes one query as seen by a Recorder.
type QueryData struct {
	RowCount    uint32
	MatchCount  int
	CodeBytes   int
	Spills      int
	CompileTime time.Duration
	ExecuteTime time.Duration
	Succeeded   bool
}

// Recorder is a QueryInstrumentation that keeps the events of the queries
// it observes. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	data   QueryData
}

// Record implements QueryInstrumentation.
func (r *Recorder) Record(ev Event, info EventInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
	switch ev {
	case EventCompileStart:
		r.data = QueryData{}
	case EventCompileDone:
		r.data.CompileTime = info.Elapsed
		r.data.CodeBytes = info.Compile.CodeBytes
		r.data.Spills = info.Compile.Spills
	case EventExecuteDone:
		r.data.ExecuteTime = info.Elapsed
		r.data.RowCount = info.Rows
		r.data.MatchCount = info.Matches
		r.data.Succeeded = info.Err == nil
	}
}

// Events returns the events recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Data returns the summary of the most recent query.
func (r *Recorder) Data() QueryData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
	r.data = QueryData{}
}
