package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markgewhite/agentic-essay-writer/internal/presentation/graph"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

func entry(role domain.Role, edge domain.Edge, next domain.Role) domain.LedgerEntry {
	return domain.LedgerEntry{Role: role, Outcome: domain.OutcomeCompleted, Edge: edge, Next: next}
}

func TestGenerateMermaid_Topology(t *testing.T) {
	out := graph.GenerateMermaid(nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("start"))`,
		`editor["Editor"]`,
		`researcher["Researcher"]`,
		`done(("done"))`,
		`start -- "start" --> editor`,
		`editor -- "decision_research" --> researcher`,
		`researcher -- "research_handoff" --> writer`,
		`editor -- "essay_complete" --> done`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
	assert.Equal(t, len(graph.Topology), strings.Count(out, "-->"))
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tests := []struct {
		name     string
		run      *domain.Run
		contains []string
		excludes []string
	}{
		{
			name: "Finished Run",
			run: &domain.Run{
				Status: domain.RunTerminated,
				Ledger: domain.NewLedger(
					entry(domain.RoleEditor, domain.EdgeEditingComplete, domain.RoleWriter),
					entry(domain.RoleWriter, domain.EdgeDraftReview, domain.RoleCritic),
					entry(domain.RoleCritic, domain.EdgeCritiqueReview, domain.RoleEditor),
					entry(domain.RoleEditor, domain.EdgeDecisionRevise, domain.RoleWriter),
					entry(domain.RoleWriter, domain.EdgeDraftReview, domain.RoleCritic),
					entry(domain.RoleCritic, domain.EdgeCritiqueReview, domain.RoleEditor),
					entry(domain.RoleEditor, domain.EdgeEssayComplete, ""),
				),
			},
			contains: []string{
				`editor["Editor ×3"]`,
				`writer -- "draft_review ×2" --> critic`,
				"class editor visited;",
				"class done visited;",
				"linkStyle 0 stroke",
				"linkStyle 9 stroke",
			},
			excludes: []string{"class researcher visited;", "current;", "failed;"},
		},
		{
			name: "Run In Progress",
			run: &domain.Run{
				Status: domain.RunEditing,
				Next:   domain.RoleResearcher,
				Ledger: domain.NewLedger(
					entry(domain.RoleEditor, domain.EdgeEditingResearch, domain.RoleResearcher),
				),
			},
			contains: []string{"class researcher current;", "linkStyle 1 stroke"},
			excludes: []string{"class done visited;"},
		},
		{
			name: "Failed Run",
			run: &domain.Run{
				Status: domain.RunFailed,
				Ledger: domain.NewLedger(
					entry(domain.RoleEditor, domain.EdgeEditingComplete, domain.RoleWriter),
					domain.LedgerEntry{Role: domain.RoleWriter, Outcome: domain.OutcomeFailed, Error: "timeout"},
				),
			},
			contains: []string{"class writer failed;", "class writer visited;"},
			excludes: []string{"current;", "draft_review ×"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(graph.OverlayOf(tt.run))
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}
