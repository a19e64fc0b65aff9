// Package progress reports pipeline stage events. Business logic only sees
// the Reporter interface; rendering lives in Terminal.
package progress

import "sync"

type Stage string

const (
	StageConnect  Stage = "connect"
	StageTags     Stage = "tags"
	StageCommits  Stage = "commits"
	StageDetails  Stage = "details"
	StageAnalyze  Stage = "analyze"
	StageContext  Stage = "context"
	StageGenerate Stage = "generate"
	StagePersist  Stage = "persist"
	StageCache    Stage = "cache"
)

type Kind string

const (
	KindStart   Kind = "start"
	KindUpdate  Kind = "update"
	KindSucceed Kind = "succeed"
	KindWarn    Kind = "warn"
	KindFail    Kind = "fail"
)

// Reporter receives stage events. Start opens a stage, Update replaces its
// message, and Succeed, Warn or Fail close it.
type Reporter interface {
	Start(stage Stage, msg string)
	Update(stage Stage, msg string)
	Succeed(stage Stage, msg string)
	Warn(stage Stage, msg string)
	Fail(stage Stage, msg string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Start(Stage, string)   {}
func (Nop) Update(Stage, string)  {}
func (Nop) Succeed(Stage, string) {}
func (Nop) Warn(Stage, string)    {}
func (Nop) Fail(Stage, string)    {}

type Event struct {
	Stage Stage
	Kind  Kind
	Msg   string
}

// Recorder keeps every event in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(stage Stage, kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Stage: stage, Kind: kind, Msg: msg})
}

func (r *Recorder) Start(stage Stage, msg string)   { r.record(stage, KindStart, msg) }
func (r *Recorder) Update(stage Stage, msg string)  { r.record(stage, KindUpdate, msg) }
func (r *Recorder) Succeed(stage Stage, msg string) { r.record(stage, KindSucceed, msg) }
func (r *Recorder) Warn(stage Stage, msg string)    { r.record(stage, KindWarn, msg) }
func (r *Recorder) Fail(stage Stage, msg string)    { r.record(stage, KindFail, msg) }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events
}

// Filter returns the events for stage with kind k.
func (r *Recorder) Filter(stage Stage, k Kind) []Event {
	var res []Event
	for _, ev := range r.Events() {
		if ev.Stage == stage && ev.Kind == k {
			res = append(res, ev)
		}
	}
	return res
}
