// Package projector folds an ordered event sequence into dashboard render
// state. The fold is a pure function of the sequence: identical input
// yields identical state whether the events arrived live or via replay.
package projector

import (
	"fmt"
	"time"

	"github.com/xiaot623/agentviz/domain"
)

// Phase is the projector's view lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseStreaming Phase = "STREAMING"
)

// DefaultEdgeDecay bounds how long a message highlight stays on an edge.
const DefaultEdgeDecay = 3 * time.Second

// EdgeKey identifies one directed edge in the agent graph.
type EdgeKey struct {
	From string
	To   string
}

// StreamEntry is one row of the chronological message stream.
type StreamEntry struct {
	Seq     int              `json:"seq"`
	Type    domain.EventType `json:"type"`
	Agent   string           `json:"agent,omitempty"`
	Text    string           `json:"text,omitempty"`
	Failure bool             `json:"failure,omitempty"`
}

// TimelineEntry is one row of the timeline trace, carrying the elapsed
// offset from the first event in the current sequence.
type TimelineEntry struct {
	Seq     int              `json:"seq"`
	Type    domain.EventType `json:"type"`
	Agent   string           `json:"agent,omitempty"`
	Label   string           `json:"label"`
	Elapsed float64          `json:"elapsed"`
	Failure bool             `json:"failure,omitempty"`
}

// Projector accumulates the three derived views. Not safe for concurrent
// use; each consumer owns one.
type Projector struct {
	topology domain.Topology
	decay    time.Duration
	now      func() time.Time

	phase       Phase
	activeAgent string
	activeEdges map[EdgeKey]time.Time
	stream      []StreamEntry
	timeline    []TimelineEntry
	firstTs     float64
	hasFirst    bool
	selected    int
}

// New creates a projector over the given topology.
func New(topology domain.Topology, decay time.Duration) *Projector {
	if decay <= 0 {
		decay = DefaultEdgeDecay
	}
	return &Projector{
		topology:    topology,
		decay:       decay,
		now:         time.Now,
		phase:       PhaseIdle,
		activeEdges: make(map[EdgeKey]time.Time),
		selected:    -1,
	}
}

// SetClock overrides the highlight clock. Tests use this to make edge
// decay observable without sleeping.
func (p *Projector) SetClock(now func() time.Time) {
	p.now = now
}

// Apply folds one event into the state.
func (p *Projector) Apply(event domain.Event) {
	if !p.hasFirst {
		p.firstTs = event.Timestamp
		p.hasFirst = true
	}

	agent := event.Agent()
	if agent != "" {
		p.activeAgent = agent
	}

	switch event.Type {
	case domain.EventTypeRunStarted:
		p.phase = PhaseStreaming
	case domain.EventTypeRunCompleted, domain.EventTypeRunFailed:
		p.phase = PhaseIdle
	case domain.EventTypeHandoff:
		if from := event.FromAgent(); from != "" && agent != "" {
			p.activeEdges[EdgeKey{From: from, To: agent}] = p.now()
		}
	case domain.EventTypeAgentMessage:
		if agent != "" {
			for _, edge := range p.topology.OutEdges(agent) {
				p.activeEdges[EdgeKey{From: edge.From, To: edge.To}] = p.now()
			}
		}
	}

	p.appendToStream(event, agent)
	p.appendToTimeline(event, agent)
}

func (p *Projector) appendToStream(event domain.Event, agent string) {
	entry := StreamEntry{
		Seq:     event.Seq,
		Type:    event.Type,
		Agent:   agent,
		Text:    streamText(event),
		Failure: event.Type == domain.EventTypeRunFailed,
	}
	p.stream = append(p.stream, entry)
}

func (p *Projector) appendToTimeline(event domain.Event, agent string) {
	entry := TimelineEntry{
		Seq:     event.Seq,
		Type:    event.Type,
		Agent:   agent,
		Label:   timelineLabel(event, agent),
		Elapsed: event.Timestamp - p.firstTs,
		Failure: event.Type == domain.EventTypeRunFailed,
	}
	p.timeline = append(p.timeline, entry)
}

// Reset clears all three views and highlight state back to the initial
// empty state. Required before a new run or replay starts.
func (p *Projector) Reset() {
	p.phase = PhaseIdle
	p.activeAgent = ""
	p.activeEdges = make(map[EdgeKey]time.Time)
	p.stream = nil
	p.timeline = nil
	p.firstTs = 0
	p.hasFirst = false
	p.selected = -1
}

// Phase returns the current view phase.
func (p *Projector) Phase() Phase {
	return p.phase
}

// ActiveAgent returns the most recently acting agent.
func (p *Projector) ActiveAgent() string {
	return p.activeAgent
}

// ActiveEdges returns the edges whose highlight has not yet decayed,
// pruning expired ones.
func (p *Projector) ActiveEdges() []EdgeKey {
	now := p.now()
	var out []EdgeKey
	for key, activated := range p.activeEdges {
		if now.Sub(activated) >= p.decay {
			delete(p.activeEdges, key)
			continue
		}
		out = append(out, key)
	}
	return out
}

// EdgeActive reports whether one edge is currently highlighted.
func (p *Projector) EdgeActive(from, to string) bool {
	activated, ok := p.activeEdges[EdgeKey{From: from, To: to}]
	if !ok {
		return false
	}
	if p.now().Sub(activated) >= p.decay {
		delete(p.activeEdges, EdgeKey{From: from, To: to})
		return false
	}
	return true
}

// Stream returns the chronological message stream.
func (p *Projector) Stream() []StreamEntry {
	return p.stream
}

// Timeline returns the timeline trace.
func (p *Projector) Timeline() []TimelineEntry {
	return p.timeline
}

// Select marks one stream entry as the detail selection. Out-of-range
// selections clear it.
func (p *Projector) Select(seq int) {
	if seq < 0 || seq >= len(p.stream) {
		p.selected = -1
		return
	}
	p.selected = seq
}

// SelectedDetail returns the selected stream entry, if any.
func (p *Projector) SelectedDetail() (StreamEntry, bool) {
	if p.selected < 0 || p.selected >= len(p.stream) {
		return StreamEntry{}, false
	}
	return p.stream[p.selected], true
}

func streamText(event domain.Event) string {
	if msg := event.Message(); msg != "" {
		return msg
	}
	if event.Data != nil {
		if note, ok := event.Data["note"].(string); ok && note != "" {
			return note
		}
		if errText, ok := event.Data["error"].(string); ok && errText != "" {
			return errText
		}
	}
	return ""
}

func timelineLabel(event domain.Event, agent string) string {
	switch event.Type {
	case domain.EventTypeHandoff:
		if from := event.FromAgent(); from != "" {
			return fmt.Sprintf("%s -> %s", from, agent)
		}
	case domain.EventTypeRunStarted, domain.EventTypeRunCompleted, domain.EventTypeRunFailed:
		return string(event.Type)
	}
	if agent != "" {
		return fmt.Sprintf("%s: %s", agent, event.Type)
	}
	return string(event.Type)
}
