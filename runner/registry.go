// Package runner holds the demo registry and the scripted drivers that
// feed the event bus. The real orchestration engine is an external
// collaborator; these drivers exercise the same publish surface it uses.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/agentviz/bus"
	"github.com/xiaot623/agentviz/domain"
)

// Step is one scripted occurrence inside a demo run.
type Step struct {
	Type      domain.EventType
	Agent     string
	FromAgent string
	Message   string
	Note      string
}

// Demo bundles a registry entry with its topology and script.
type Demo struct {
	Info     domain.Demo
	Topology domain.Topology
	Script   []Step
}

// Registry is the set of runnable demos.
type Registry struct {
	demos []Demo
	index map[string]int
}

// NewRegistry builds the default registry.
func NewRegistry() *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, d := range builtinDemos() {
		r.index[d.Info.ID] = len(r.demos)
		r.demos = append(r.demos, d)
	}
	return r
}

// List returns all registry entries.
func (r *Registry) List() []domain.Demo {
	out := make([]domain.Demo, len(r.demos))
	for i, d := range r.demos {
		out[i] = d.Info
	}
	return out
}

// Get looks up a demo by ID.
func (r *Registry) Get(demoID string) (Demo, bool) {
	i, ok := r.index[demoID]
	if !ok {
		return Demo{}, false
	}
	return r.demos[i], true
}

// Run drives one scripted demo through the bus: start the run, publish the
// script paced by stepDelay, close with a terminal event. A cancelled
// context closes the run as failed; events already accepted stay logged.
func (r *Registry) Run(ctx context.Context, b *bus.Bus, demoID, prompt string, stepDelay time.Duration) error {
	demo, ok := r.Get(demoID)
	if !ok {
		return fmt.Errorf("unknown demo: %s", demoID)
	}

	handle, err := b.StartRun(demoID)
	if err != nil {
		return err
	}

	return r.Drive(ctx, handle, demo, prompt, stepDelay)
}

// Drive publishes a demo's script through an already-opened run handle.
// Callers that must report start conflicts synchronously open the run
// themselves and hand the handle over.
func (r *Registry) Drive(ctx context.Context, handle *bus.RunHandle, demo Demo, prompt string, stepDelay time.Duration) error {
	started := domain.NewEvent(domain.EventTypeRunStarted, map[string]interface{}{
		"participants": demo.Info.Agents,
		"prompt":       prompt,
	})
	if err := handle.Publish(started); err != nil {
		return err
	}

	for _, step := range demo.Script {
		select {
		case <-ctx.Done():
			return handle.Close(domain.EventTypeRunFailed, map[string]interface{}{
				"agent": "System",
				"error": "run stopped",
			})
		case <-time.After(stepDelay):
		}

		if err := handle.Publish(stepEvent(step, prompt)); err != nil {
			closeErr := handle.Close(domain.EventTypeRunFailed, map[string]interface{}{
				"agent": "System",
				"error": err.Error(),
			})
			if closeErr != nil {
				return closeErr
			}
			return err
		}
	}

	return handle.Close(domain.EventTypeRunCompleted, map[string]interface{}{
		"agent": demo.Info.Agents[len(demo.Info.Agents)-1],
	})
}

func stepEvent(step Step, prompt string) domain.Event {
	data := map[string]interface{}{}
	if step.Agent != "" {
		data["agent"] = step.Agent
	}
	if step.FromAgent != "" {
		data["from_agent"] = step.FromAgent
	}
	if step.Message != "" {
		data["message"] = step.Message
	}
	if step.Note != "" {
		data["note"] = step.Note
	}
	if step.Type == domain.EventTypeAgentStarted && prompt != "" {
		data["input"] = truncate(prompt, 200)
	}
	return domain.NewEvent(step.Type, data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
