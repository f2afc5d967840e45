package graph

import (
	"fmt"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

const (
	startNode = "start"
	endNode   = "done"
)

// Transition is one edge of the agent topology.
type Transition struct {
	From string
	To   string
	Edge domain.Edge
}

// Topology lists every transition the router can take. From and To are role
// names, or the start and done pseudo-nodes.
var Topology = []Transition{
	{startNode, string(domain.RoleEditor), domain.EdgeStart},
	{string(domain.RoleEditor), string(domain.RoleResearcher), domain.EdgeEditingResearch},
	{string(domain.RoleResearcher), string(domain.RoleEditor), domain.EdgeResearchReturn},
	{string(domain.RoleEditor), string(domain.RoleWriter), domain.EdgeEditingComplete},
	{string(domain.RoleWriter), string(domain.RoleCritic), domain.EdgeDraftReview},
	{string(domain.RoleCritic), string(domain.RoleEditor), domain.EdgeCritiqueReview},
	{string(domain.RoleEditor), string(domain.RoleResearcher), domain.EdgeDecisionResearch},
	{string(domain.RoleResearcher), string(domain.RoleWriter), domain.EdgeResearchHandoff},
	{string(domain.RoleEditor), string(domain.RoleWriter), domain.EdgeDecisionRevise},
	{string(domain.RoleEditor), endNode, domain.EdgeEssayComplete},
}

// Overlay contains the path of one run to visualize on the graph.
type Overlay struct {
	Visits    map[domain.Role]int
	Traversed map[domain.Edge]int
	Current   domain.Role
	Failed    domain.Role
	Finished  bool
}

// OverlayOf builds the overlay of run from its ledger.
func OverlayOf(run *domain.Run) *Overlay {
	o := &Overlay{
		Visits:    make(map[domain.Role]int),
		Traversed: make(map[domain.Edge]int),
		Finished:  run.Status == domain.RunTerminated,
	}
	if run.Ledger == nil {
		return o
	}
	for i, e := range run.Ledger.Entries() {
		if i == 0 {
			o.Traversed[domain.EdgeStart]++
		}
		o.Visits[e.Role]++
		if e.Outcome == domain.OutcomeFailed {
			o.Failed = e.Role
			continue
		}
		if e.Edge != "" {
			o.Traversed[e.Edge]++
		}
	}
	if !run.Status.Finished() {
		o.Current = run.Next
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the agent topology.
// Start and done are drawn as circles, roles as rectangles. With an overlay,
// visited roles, taken edges (with their counts) and the next role are
// highlighted.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", startNode, startNode))
	for _, role := range domain.Roles() {
		label := role.Title()
		if overlay != nil && overlay.Visits[role] > 0 {
			label = fmt.Sprintf("%s ×%d", label, overlay.Visits[role])
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", role, label))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", endNode, endNode))

	var taken []int
	for i, t := range Topology {
		label := string(t.Edge)
		if overlay != nil {
			if n := overlay.Traversed[t.Edge]; n > 0 {
				taken = append(taken, i)
				if n > 1 {
					label = fmt.Sprintf("%s ×%d", label, n)
				}
			}
		}
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", t.From, label, t.To))
	}

	if overlay == nil {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

	for _, role := range domain.Roles() {
		if overlay.Visits[role] > 0 {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", role))
		}
	}
	if overlay.Traversed[domain.EdgeStart] > 0 {
		sb.WriteString(fmt.Sprintf("    class %s visited;\n", startNode))
	}
	if overlay.Finished {
		sb.WriteString(fmt.Sprintf("    class %s visited;\n", endNode))
	}
	if overlay.Current != "" {
		sb.WriteString(fmt.Sprintf("    class %s current;\n", overlay.Current))
	}
	if overlay.Failed != "" {
		sb.WriteString(fmt.Sprintf("    class %s failed;\n", overlay.Failed))
	}
	for _, i := range taken {
		sb.WriteString(fmt.Sprintf("    linkStyle %d stroke:#01579b,stroke-width:3px;\n", i))
	}

	return sb.String()
}
