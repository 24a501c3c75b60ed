package domain

// Demo describes one orchestration pattern available to run.
type Demo struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Pattern         string   `json:"pattern"`
	Description     string   `json:"description"`
	Agents          []string `json:"agents"`
	SuggestedPrompt string   `json:"suggested_prompt,omitempty"`
}

// Topology is the static node/edge description handed to the graph
// renderer. The visualizer treats it as opaque input: nodes are agent
// names, edges are the interaction routes between them.
type Topology struct {
	Nodes []TopologyNode `json:"nodes"`
	Edges []TopologyEdge `json:"edges"`
}

// TopologyNode is one agent in the graph.
type TopologyNode struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TopologyEdge is one interaction route between two agents.
type TopologyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// OutEdges returns the edges whose source is the given agent.
func (t Topology) OutEdges(agent string) []TopologyEdge {
	var out []TopologyEdge
	for _, e := range t.Edges {
		if e.From == agent {
			out = append(out, e)
		}
	}
	return out
}
