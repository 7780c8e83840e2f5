// Package telemetry accumulates the sync ping: one record per sync, one per
// engine inside it, with incoming and outgoing counts and the first failure
// seen. The tree is built by the sync code and serialised to JSON for the
// caller; nothing here sends it anywhere.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnfinished is returned when serialising a sync or engine whose
// stopwatch was never stopped.
var ErrUnfinished = errors.New("telemetry stopwatch has not been finished")

// ErrEventField reports an event field over its length limit.
var ErrEventField = errors.New("telemetry event field out of range")

// now is swapped in tests.
var now = time.Now

type stopwatch struct {
	start    time.Time
	finished bool
	when     float64
	took     int64
}

func newStopwatch() stopwatch {
	return stopwatch{start: now()}
}

func (s *stopwatch) finish() {
	if s.finished {
		return
	}
	end := now()
	s.when = float64(s.start.Unix())
	s.took = end.Sub(s.start).Milliseconds()
	s.finished = true
}

// EngineIncoming counts what happened to incoming records.
type EngineIncoming struct {
	Applied    uint32 `json:"applied,omitempty"`
	Failed     uint32 `json:"failed,omitempty"`
	NewFailed  uint32 `json:"newFailed,omitempty"`
	Reconciled uint32 `json:"reconciled,omitempty"`
}

func (i *EngineIncoming) AddApplied(n uint32)    { i.Applied += n }
func (i *EngineIncoming) AddFailed(n uint32)     { i.Failed += n }
func (i *EngineIncoming) AddNewFailed(n uint32)  { i.NewFailed += n }
func (i *EngineIncoming) AddReconciled(n uint32) { i.Reconciled += n }

// IsEmpty reports whether every counter is zero.
func (i EngineIncoming) IsEmpty() bool {
	return i == EngineIncoming{}
}

// EngineOutgoing counts one upload.
type EngineOutgoing struct {
	Sent   int `json:"sent,omitempty"`
	Failed int `json:"failed,omitempty"`
}

// Problem is one validation finding.
type Problem struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// Validation is the result of an engine's validator run.
type Validation struct {
	Version  uint32       `json:"version"`
	Problems []Problem    `json:"problems,omitempty"`
	Failure  *SyncFailure `json:"failureReason,omitempty"`
}

// AddProblem records a problem; zero counts are ignored.
func (v *Validation) AddProblem(name string, count int) *Validation {
	if count > 0 {
		v.Problems = append(v.Problems, Problem{Name: name, Count: count})
	}
	return v
}

// Engine is the telemetry for one engine in one sync.
type Engine struct {
	name       string
	watch      stopwatch
	incoming   EngineIncoming
	outgoing   []EngineOutgoing
	failure    *SyncFailure
	validation *Validation
}

// NewEngine starts timing an engine.
func NewEngine(name string) *Engine {
	return &Engine{name: name, watch: newStopwatch()}
}

func (e *Engine) Name() string { return e.name }

// Incoming adds inc to the engine's incoming counters.
func (e *Engine) Incoming(inc EngineIncoming) {
	e.incoming.Applied += inc.Applied
	e.incoming.Failed += inc.Failed
	e.incoming.NewFailed += inc.NewFailed
	e.incoming.Reconciled += inc.Reconciled
}

// Outgoing records one upload.
func (e *Engine) Outgoing(out EngineOutgoing) {
	e.outgoing = append(e.outgoing, out)
}

// Failure records f unless a failure was already recorded.
func (e *Engine) Failure(f SyncFailure) {
	if e.failure != nil {
		return
	}
	e.failure = &f
}

// Validation attaches validator results.
func (e *Engine) Validation(v Validation) {
	e.validation = &v
}

// IncomingCounts returns the accumulated incoming counters.
func (e *Engine) IncomingCounts() EngineIncoming { return e.incoming }

// OutgoingBatches returns one entry per upload.
func (e *Engine) OutgoingBatches() []EngineOutgoing { return e.outgoing }

// FailureReason returns the first failure recorded, if any.
func (e *Engine) FailureReason() *SyncFailure { return e.failure }

// Finish stops the engine's stopwatch.
func (e *Engine) Finish() { e.watch.finish() }

func (e *Engine) MarshalJSON() ([]byte, error) {
	if !e.watch.finished {
		return nil, fmt.Errorf("engine %s: %w", e.name, ErrUnfinished)
	}
	type wire struct {
		Name       string           `json:"name"`
		When       float64          `json:"when"`
		Took       int64            `json:"took,omitempty"`
		Incoming   *EngineIncoming  `json:"incoming,omitempty"`
		Outgoing   []EngineOutgoing `json:"outgoing,omitempty"`
		Failure    *SyncFailure     `json:"failureReason,omitempty"`
		Validation *Validation      `json:"validation,omitempty"`
	}
	w := wire{
		Name:       e.name,
		When:       e.watch.when,
		Took:       e.watch.took,
		Outgoing:   e.outgoing,
		Failure:    e.failure,
		Validation: e.validation,
	}
	if !e.incoming.IsEmpty() {
		inc := e.incoming
		w.Incoming = &inc
	}
	return json.Marshal(w)
}

// Sync is the telemetry of one sync call.
type Sync struct {
	watch   stopwatch
	engines []*Engine
	failure *SyncFailure
}

// NewSync starts timing a sync.
func NewSync() *Sync {
	return &Sync{watch: newStopwatch()}
}

// Engine finishes e and adds it to the sync.
func (s *Sync) Engine(e *Engine) {
	e.Finish()
	s.engines = append(s.engines, e)
}

// Failure records the sync-level failure; the first one wins.
func (s *Sync) Failure(f SyncFailure) {
	if s.failure != nil {
		return
	}
	s.failure = &f
}

func (s *Sync) Engines() []*Engine { return s.engines }

func (s *Sync) FailureReason() *SyncFailure { return s.failure }

// Finish stops the sync's stopwatch.
func (s *Sync) Finish() { s.watch.finish() }

func (s *Sync) MarshalJSON() ([]byte, error) {
	if !s.watch.finished {
		return nil, fmt.Errorf("sync: %w", ErrUnfinished)
	}
	return json.Marshal(struct {
		When    float64      `json:"when"`
		Took    int64        `json:"took,omitempty"`
		Engines []*Engine    `json:"engines,omitempty"`
		Failure *SyncFailure `json:"failureReason,omitempty"`
	}{s.watch.when, s.watch.took, s.engines, s.failure})
}

// Ping is the top level document handed to the caller.
type Ping struct {
	Version int      `json:"version"`
	UID     *string  `json:"uid"`
	Events  []*Event `json:"events,omitempty"`
	Syncs   []*Sync  `json:"syncs,omitempty"`
}

// NewPing returns an empty version 1 ping.
func NewPing() *Ping {
	return &Ping{Version: 1}
}

// SetUID sets the hashed account uid.
func (p *Ping) SetUID(uid string) {
	p.UID = &uid
}

// Sync finishes s and adds it to the ping.
func (p *Ping) Sync(s *Sync) {
	s.Finish()
	p.Syncs = append(p.Syncs, s)
}

// Event adds an event.
func (p *Ping) Event(e *Event) {
	p.Events = append(p.Events, e)
}

// JSON serialises the ping.
func (p *Ping) JSON() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
