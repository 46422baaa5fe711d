// Package events defines the notifications emitted by download operations.
//
// Every operation receives its own Observer instead of publishing to a
// process-wide handle. Events carry the id of the operation that produced
// them so one observer may be shared by concurrent operations.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event names understood by the front end.
const (
	NameDownloaded = "downloaded"
	NameProgress   = "progress"
)

// UnknownTotal is the Total of a stream whose length was not reported.
const UnknownTotal int64 = -1

// OpID identifies one operation (a batch or a stream).
type OpID = uuid.UUID

// NewOp returns a fresh operation id.
func NewOp() OpID {
	return uuid.New()
}

// Progress reports bytes persisted so far for a single stream.
type Progress struct {
	Op         OpID   `json:"op"`
	URL        string `json:"url"`
	Downloaded int64  `json:"downloaded"`
	Total      int64  `json:"total_size"`
}

// Known reports whether the stream length is known.
func (p Progress) Known() bool {
	return p.Total >= 0
}

// Percent returns 0-100, or -1 when the total is unknown.
func (p Progress) Percent() int {
	if !p.Known() {
		return -1
	}
	if p.Total == 0 {
		return 100
	}
	return int(p.Downloaded * 100 / p.Total)
}

// Downloaded is emitted once per finished batch task, successful or not.
type Downloaded struct {
	Op    OpID   `json:"op"`
	URL   string `json:"url"`
	Dest  string `json:"dest"`
	Bytes int64  `json:"bytes"`
	Err   error  `json:"-"`
}

// OK reports whether the task succeeded.
func (d Downloaded) OK() bool {
	return d.Err == nil
}

// Observer receives events for one operation.
type Observer interface {
	Progress(Progress)
	Downloaded(Downloaded)
}

// Funcs adapts plain functions to an Observer. Nil fields are ignored.
type Funcs struct {
	OnProgress   func(Progress)
	OnDownloaded func(Downloaded)
}

func (f Funcs) Progress(p Progress) {
	if f.OnProgress != nil {
		f.OnProgress(p)
	}
}

func (f Funcs) Downloaded(d Downloaded) {
	if f.OnDownloaded != nil {
		f.OnDownloaded(d)
	}
}

// Discard drops every event.
var Discard Observer = Funcs{}

// OrDiscard returns o, or Discard when o is nil.
func OrDiscard(o Observer) Observer {
	if o == nil {
		return Discard
	}
	return o
}

// WithOp stamps op onto every event before passing it to o.
func WithOp(op OpID, o Observer) Observer {
	next := OrDiscard(o)
	return Funcs{
		OnProgress: func(p Progress) {
			p.Op = op
			next.Progress(p)
		},
		OnDownloaded: func(d Downloaded) {
			d.Op = op
			next.Downloaded(d)
		},
	}
}

// Event is a named notification, as pushed to a front end channel.
type Event struct {
	Name    string
	Payload any
}

// ToChannel returns an Observer that forwards every event to ch.
// Sends block; the caller must keep draining ch for the operation's lifetime.
func ToChannel(ch chan<- Event) Observer {
	return Funcs{
		OnProgress:   func(p Progress) { ch <- Event{Name: NameProgress, Payload: p} },
		OnDownloaded: func(d Downloaded) { ch <- Event{Name: NameDownloaded, Payload: d} },
	}
}

// Synchronized serializes calls into o.
func Synchronized(o Observer) Observer {
	return &syncObserver{next: OrDiscard(o)}
}

type syncObserver struct {
	mu   sync.Mutex
	next Observer
}

func (s *syncObserver) Progress(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Progress(p)
}

func (s *syncObserver) Downloaded(d Downloaded) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.Downloaded(d)
}

// Recorder keeps every event it receives. Safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	progress   []Progress
	downloaded []Downloaded
}

func (r *Recorder) Progress(p Progress) {
	r.mu.Lock()
	r.progress = append(r.progress, p)
	r.mu.Unlock()
}

func (r *Recorder) Downloaded(d Downloaded) {
	r.mu.Lock()
	r.downloaded = append(r.downloaded, d)
	r.mu.Unlock()
}

// ProgressEvents returns a copy of the recorded progress events.
func (r *Recorder) ProgressEvents() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.progress...)
}

// DownloadedEvents returns a copy of the recorded completion events.
func (r *Recorder) DownloadedEvents() []Downloaded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Downloaded(nil), r.downloaded...)
}
