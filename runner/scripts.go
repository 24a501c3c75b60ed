package runner

import "github.com/xiaot623/agentviz/domain"

func builtinDemos() []Demo {
	return []Demo{
		makerChecker(),
		hierarchicalResearch(),
		handoffSupport(),
		networkBrainstorm(),
		supervisorRouter(),
		swarmAuditor(),
	}
}

func chainEdges(agents ...string) []domain.TopologyEdge {
	var edges []domain.TopologyEdge
	for i := 0; i+1 < len(agents); i++ {
		edges = append(edges, domain.TopologyEdge{From: agents[i], To: agents[i+1]})
	}
	return edges
}

func nodes(agents ...string) []domain.TopologyNode {
	out := make([]domain.TopologyNode, len(agents))
	for i, a := range agents {
		out[i] = domain.TopologyNode{ID: a, Label: a}
	}
	return out
}

func makerChecker() Demo {
	agents := []string{"Worker", "Reviewer"}
	return Demo{
		Info: domain.Demo{
			ID:              "maker_checker",
			Title:           "Maker-Checker PR Review",
			Pattern:         "sequential",
			Description:     "Worker drafts a PR review, Reviewer approves or requests changes. Iterates up to 3 rounds.",
			Agents:          agents,
			SuggestedPrompt: "Review this PR diff for correctness, edge cases, and improvements.",
		},
		Topology: domain.Topology{
			Nodes: nodes(agents...),
			Edges: []domain.TopologyEdge{
				{From: "Worker", To: "Reviewer"},
				{From: "Reviewer", To: "Worker"},
			},
		},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Worker"},
			{Type: domain.EventTypeAgentMessage, Agent: "Worker", Message: "Drafted review: the total loop looks correct but misses empty-cart and negative-qty cases."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Worker"},
			{Type: domain.EventTypeHandoff, Agent: "Reviewer", FromAgent: "Worker"},
			{Type: domain.EventTypeAgentStarted, Agent: "Reviewer"},
			{Type: domain.EventTypeAgentMessage, Agent: "Reviewer", Message: "Requesting changes: add input validation and a unit test for the empty list."},
			{Type: domain.EventTypeHandoff, Agent: "Worker", FromAgent: "Reviewer"},
			{Type: domain.EventTypeAgentMessage, Agent: "Worker", Message: "Revised review covers validation and the missing test."},
			{Type: domain.EventTypeHandoff, Agent: "Reviewer", FromAgent: "Worker"},
			{Type: domain.EventTypeAgentMessage, Agent: "Reviewer", Message: "Approved on round 2."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Reviewer"},
		},
	}
}

func hierarchicalResearch() Demo {
	agents := []string{"Manager", "Specialist_A", "Specialist_B", "Synthesizer"}
	return Demo{
		Info: domain.Demo{
			ID:              "hierarchical_research",
			Title:           "Hierarchical Research Brief",
			Pattern:         "concurrent + sequential",
			Description:     "Manager decomposes a topic, specialists research in parallel, synthesizer merges findings.",
			Agents:          agents,
			SuggestedPrompt: "The potential of on-device AI models for enterprise applications",
		},
		Topology: domain.Topology{
			Nodes: nodes(agents...),
			Edges: []domain.TopologyEdge{
				{From: "Manager", To: "Specialist_A"},
				{From: "Manager", To: "Specialist_B"},
				{From: "Specialist_A", To: "Synthesizer"},
				{From: "Specialist_B", To: "Synthesizer"},
			},
		},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Manager"},
			{Type: domain.EventTypeAgentMessage, Agent: "Manager", Message: "Splitting the topic into market landscape and technical constraints."},
			{Type: domain.EventTypeHandoff, Agent: "Specialist_A", FromAgent: "Manager"},
			{Type: domain.EventTypeHandoff, Agent: "Specialist_B", FromAgent: "Manager"},
			{Type: domain.EventTypeAgentMessage, Agent: "Specialist_A", Message: "Market: strongest pull in regulated industries that cannot ship data off-device."},
			{Type: domain.EventTypeAgentMessage, Agent: "Specialist_B", Message: "Technical: quantized small models fit laptop NPUs; context length is the limit."},
			{Type: domain.EventTypeHandoff, Agent: "Synthesizer", FromAgent: "Specialist_A"},
			{Type: domain.EventTypeAgentMessage, Agent: "Synthesizer", Message: "Brief merged: lead with compliance wins, flag context-length ceilings."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Synthesizer"},
		},
	}
}

func handoffSupport() Demo {
	agents := []string{"Triage", "Billing", "TechSupport"}
	return Demo{
		Info: domain.Demo{
			ID:              "handoff_support",
			Title:           "Hand-off Customer Support",
			Pattern:         "handoff",
			Description:     "Triage agent classifies a customer query, then hands off to Billing or TechSupport.",
			Agents:          agents,
			SuggestedPrompt: "I was charged twice for my subscription and I can't access the admin dashboard.",
		},
		Topology: domain.Topology{
			Nodes: nodes(agents...),
			Edges: []domain.TopologyEdge{
				{From: "Triage", To: "Billing"},
				{From: "Triage", To: "TechSupport"},
			},
		},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Triage"},
			{Type: domain.EventTypeAgentMessage, Agent: "Triage", Message: "Two issues detected: a duplicate charge and a dashboard access failure."},
			{Type: domain.EventTypeHandoff, Agent: "Billing", FromAgent: "Triage"},
			{Type: domain.EventTypeAgentMessage, Agent: "Billing", Message: "Duplicate charge confirmed, refund issued to the original payment method."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Billing"},
			{Type: domain.EventTypeHandoff, Agent: "TechSupport", FromAgent: "Triage"},
			{Type: domain.EventTypeAgentMessage, Agent: "TechSupport", Message: "Dashboard access restored; the role mapping was stale after the plan change."},
			{Type: domain.EventTypeAgentCompleted, Agent: "TechSupport"},
		},
	}
}

func networkBrainstorm() Demo {
	agents := []string{"Innovator", "Pragmatist", "DevilsAdvocate", "Synthesizer"}
	var edges []domain.TopologyEdge
	for _, from := range agents {
		for _, to := range agents {
			if from != to {
				edges = append(edges, domain.TopologyEdge{From: from, To: to})
			}
		}
	}
	return Demo{
		Info: domain.Demo{
			ID:              "network_brainstorm",
			Title:           "Network Brainstorm",
			Pattern:         "group chat",
			Description:     "Four peers collaborate in a shared conversation: Innovator, Pragmatist, Devil's Advocate, Synthesizer.",
			Agents:          agents,
			SuggestedPrompt: "How should a mid-size SaaS company adopt on-device AI to improve their product?",
		},
		Topology: domain.Topology{Nodes: nodes(agents...), Edges: edges},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Innovator"},
			{Type: domain.EventTypeAgentMessage, Agent: "Innovator", Message: "Ship an offline assistant as the flagship differentiator."},
			{Type: domain.EventTypeAgentMessage, Agent: "Pragmatist", Message: "Start with one workflow where latency hurts today, measure, then expand."},
			{Type: domain.EventTypeAgentMessage, Agent: "DevilsAdvocate", Message: "On-device model drift across customer hardware will eat the support budget."},
			{Type: domain.EventTypeAgentMessage, Agent: "Innovator", Message: "Pin a model version per release; drift becomes an upgrade decision."},
			{Type: domain.EventTypeAgentMessage, Agent: "Synthesizer", Message: "Consensus: pilot one latency-critical flow with a pinned model, revisit quarterly."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Synthesizer"},
		},
	}
}

func supervisorRouter() Demo {
	agents := []string{"Supervisor", "CodeExpert", "DataExpert", "DocExpert"}
	return Demo{
		Info: domain.Demo{
			ID:              "supervisor_router",
			Title:           "Supervisor Router",
			Pattern:         "sequential + handoff",
			Description:     "Supervisor classifies the task type, then routes to a specialist: Code, Data, or Docs.",
			Agents:          agents,
			SuggestedPrompt: "Write a function that groups CSV rows by category and returns the top 3 by revenue.",
		},
		Topology: domain.Topology{
			Nodes: nodes(agents...),
			Edges: []domain.TopologyEdge{
				{From: "Supervisor", To: "CodeExpert"},
				{From: "Supervisor", To: "DataExpert"},
				{From: "Supervisor", To: "DocExpert"},
			},
		},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Supervisor"},
			{Type: domain.EventTypeAgentMessage, Agent: "Supervisor", Message: "Classified as a coding task with a data-processing core."},
			{Type: domain.EventTypeOrchestratorNote, Note: "routing decision: CodeExpert (confidence 0.86)"},
			{Type: domain.EventTypeHandoff, Agent: "CodeExpert", FromAgent: "Supervisor"},
			{Type: domain.EventTypeAgentStarted, Agent: "CodeExpert"},
			{Type: domain.EventTypeAgentMessage, Agent: "CodeExpert", Message: "Implemented grouped aggregation with a stable top-3 sort and docstrings."},
			{Type: domain.EventTypeAgentCompleted, Agent: "CodeExpert"},
		},
	}
}

func swarmAuditor() Demo {
	agents := []string{"Generator_A", "Generator_B", "Generator_C", "Auditor", "Selector"}
	return Demo{
		Info: domain.Demo{
			ID:              "swarm_auditor",
			Title:           "Swarm + Auditor",
			Pattern:         "concurrent + sequential",
			Description:     "Three generators brainstorm in parallel, Auditor scores proposals, Selector picks the winner.",
			Agents:          agents,
			SuggestedPrompt: "Reduce cloud costs by 40% while maintaining 99.9% uptime.",
		},
		Topology: domain.Topology{
			Nodes: nodes(agents...),
			Edges: append(chainEdges("Auditor", "Selector"),
				domain.TopologyEdge{From: "Generator_A", To: "Auditor"},
				domain.TopologyEdge{From: "Generator_B", To: "Auditor"},
				domain.TopologyEdge{From: "Generator_C", To: "Auditor"},
			),
		},
		Script: []Step{
			{Type: domain.EventTypeAgentStarted, Agent: "Generator_A"},
			{Type: domain.EventTypeAgentMessage, Agent: "Generator_A", Message: "Proposal: reserved-instance coverage plus workload right-sizing."},
			{Type: domain.EventTypeAgentMessage, Agent: "Generator_B", Message: "Proposal: move batch pipelines to spot capacity with checkpointing."},
			{Type: domain.EventTypeAgentMessage, Agent: "Generator_C", Message: "Proposal: consolidate three regional clusters into one with edge caching."},
			{Type: domain.EventTypeHandoff, Agent: "Auditor", FromAgent: "Generator_A"},
			{Type: domain.EventTypeAgentMessage, Agent: "Auditor", Message: "Scores: A 0.81, B 0.74, C 0.58 (consolidation risks the uptime target)."},
			{Type: domain.EventTypeHandoff, Agent: "Selector", FromAgent: "Auditor"},
			{Type: domain.EventTypeAgentMessage, Agent: "Selector", Message: "Selected proposal A with B's spot strategy for batch workloads only."},
			{Type: domain.EventTypeAgentCompleted, Agent: "Selector"},
		},
	}
}
