package agents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

const planText = `Here is my plan.

**THESIS:** Urban beekeeping helps pollinators only when forage keeps pace.

OUTLINE:
I. Introduction
   - Rise of rooftop hives
II. Forage limits
   - Competition with wild bees
Conclusion
   - Plant before you keep

RESEARCH_NEEDED: Yes

QUERIES:
- urban honeybee density and wild bee competition
- city forage capacity studies
* rooftop hive survival rates

READY_TO_WRITE: No

REASONING: Need evidence on competition.`

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan(planText)
	require.NoError(t, err)

	assert.Equal(t, "Urban beekeeping helps pollinators only when forage keeps pace.", p.Thesis)
	assert.Contains(t, p.Outline, "II. Forage limits")
	assert.Contains(t, p.Outline, "Plant before you keep")
	assert.True(t, p.ResearchNeeded)
	assert.False(t, p.Ready)
	assert.Equal(t, []string{
		"urban honeybee density and wild bee competition",
		"city forage capacity studies",
		"rooftop hive survival rates",
	}, p.Queries)
	assert.Equal(t, "Need evidence on competition.", p.Reasoning)
}

func TestParsePlan_Variants(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantErr     bool
		wantQueries int
		wantReady   bool
	}{
		{
			name:    "missing outline",
			text:    "THESIS: something",
			wantErr: true,
		},
		{
			name:    "missing thesis",
			text:    "OUTLINE:\nI. Intro",
			wantErr: true,
		},
		{
			name:        "research declined drops queries",
			text:        "THESIS: t\nOUTLINE:\nI. Intro\nRESEARCH_NEEDED: No\nQUERIES:\n- q1\nREADY_TO_WRITE: Yes",
			wantQueries: 0,
			wantReady:   true,
		},
		{
			name:        "flags absent",
			text:        "THESIS: t\nOUTLINE:\nI. Intro\nQUERIES:\n1. first\n2) second",
			wantQueries: 2,
		},
		{
			name:        "markdown headings",
			text:        "## Thesis: t\n### Outline:\nI. Intro\n**Queries:**\n- q",
			wantQueries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePlan(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrMalformedResponse))
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.Queries, tt.wantQueries)
			assert.Equal(t, tt.wantReady, p.Ready)
		})
	}
}

func TestParseReview(t *testing.T) {
	tests := []struct {
		text string
		want domain.Decision
	}{
		{"DECISION: approve\nDIRECTION: none", domain.DecisionApprove},
		{"DECISION: Approved.\n", domain.DecisionApprove},
		{"DECISION: revise\nDIRECTION: tighten section II", domain.DecisionRevise},
		{"**DECISION:** Revision", domain.DecisionRevise},
		{"DECISION: research\nQUERIES:\n- q1\n- q2", domain.DecisionResearch},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			r, err := ParseReview(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Decision)
		})
	}

	r, err := ParseReview("DECISION: research\nDIRECTION: find data\nQUERIES:\n- q1\n- q2\nTHESIS: new thesis")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, r.Queries)
	assert.Equal(t, "find data", r.Direction)
	assert.Equal(t, "new thesis", r.Thesis)

	for _, text := range []string{"", "DECISION: maybe", "I think it is fine."} {
		_, err := ParseReview(text)
		if !errors.Is(err, domain.ErrMalformedResponse) {
			t.Errorf("ParseReview(%q) error = %v, want malformed", text, err)
		}
	}
}

const critiqueText = `EVALUATION: Solid structure, thin evidence.

STRENGTHS:
- Clear thesis
- Good transitions

AREAS FOR IMPROVEMENT:
1. Section II lacks data - Example: "many bees"
   Suggestion: cite forage studies
2. Conclusion repeats the introduction
   Suggestion: end on a recommendation

LENGTH: 1320 / 1500 words

APPROVED: No
REASON: Evidence is too thin.`

func TestParseCritique(t *testing.T) {
	c := ParseCritique(critiqueText)

	assert.Equal(t, "Solid structure, thin evidence.", c.Evaluation)
	assert.Equal(t, []string{"Clear thesis", "Good transitions"}, c.Strengths)
	require.Len(t, c.Improvements, 2)
	assert.Contains(t, c.Improvements[0], "Suggestion: cite forage studies")
	assert.Equal(t, "1320 / 1500 words", c.Length)
	assert.False(t, c.Approved)
	assert.Equal(t, "Evidence is too thin.", c.Reason)

	fb := c.Feedback()
	assert.Contains(t, fb, "EVALUATION: Solid structure")
	assert.Contains(t, fb, "2. Conclusion repeats the introduction")
	assert.Contains(t, fb, "APPROVED: No")
}

func TestParseCritique_Unstructured(t *testing.T) {
	c := ParseCritique("This essay is fine but could use more sources.")
	assert.Empty(t, c.Feedback())
}
