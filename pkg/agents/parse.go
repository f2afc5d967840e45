package agents

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// Section markers the prompts ask models to emit, one per line.
const (
	markerThesis       = "THESIS"
	markerOutline      = "OUTLINE"
	markerResearch     = "RESEARCH_NEEDED"
	markerQueries      = "QUERIES"
	markerReady        = "READY_TO_WRITE"
	markerReasoning    = "REASONING"
	markerDecision     = "DECISION"
	markerDirection    = "DIRECTION"
	markerEvaluation   = "EVALUATION"
	markerStrengths    = "STRENGTHS"
	markerImprovements = "AREAS FOR IMPROVEMENT"
	markerLength       = "LENGTH"
	markerApproved     = "APPROVED"
	markerReason       = "REASON"
)

var allMarkers = []string{
	markerThesis, markerOutline, markerResearch, markerQueries, markerReady,
	markerReasoning, markerDecision, markerDirection, markerEvaluation,
	markerStrengths, markerImprovements, markerLength, markerApproved, markerReason,
}

// markerLine matches an unindented "MARKER: rest", tolerating markdown
// emphasis and heading prefixes around the marker.
var markerLine = regexp.MustCompile(`^(?:#+\s*)?[*_]*([A-Za-z][A-Za-z_ ]*?)[*_]*\s*:[*_]*\s*(.*)$`)

var (
	bulletLine   = regexp.MustCompile(`^\s*(?:[-•*]|\d+[.)])\s+(.*)$`)
	numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
)

// sections splits a completion into marker sections. Text before the first
// marker is dropped; a repeated marker keeps its first occurrence.
func sections(text string) map[string]string {
	known := make(map[string]bool, len(allMarkers))
	for _, m := range allMarkers {
		known[m] = true
	}

	out := make(map[string]string)
	var current string
	var body []string
	flush := func() {
		if current == "" {
			return
		}
		if _, seen := out[current]; !seen {
			out[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if m := markerLine.FindStringSubmatch(line); m != nil {
			name := strings.ToUpper(strings.TrimSpace(m[1]))
			if known[name] {
				flush()
				current = name
				body = body[:0]
				if rest := strings.TrimSpace(m[2]); rest != "" {
					body = append(body, rest)
				}
				continue
			}
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return out
}

// bullets returns the items of a "- item" or "1. item" list.
func bullets(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// numbered returns the items of a numbered list, folding continuation lines
// (such as "Suggestion: ...") into the preceding item.
func numbered(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			continue
		}
		if t := strings.TrimSpace(line); t != "" && len(out) > 0 {
			out[len(out)-1] += "\n   " + t
		}
	}
	return out
}

// yesNo reads a Yes/No flag; ok is false when the value is neither.
func yesNo(s string) (value, ok bool) {
	word := strings.ToLower(strings.Trim(firstWord(s), ".,;:!*[]"))
	switch word {
	case "yes", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Plan is the editor's planning output.
type Plan struct {
	Thesis         string
	Outline        string
	ResearchNeeded bool
	Queries        []string
	Ready          bool
	Reasoning      string
}

// ParsePlan parses a planning completion. Thesis and outline are required.
func ParsePlan(text string) (Plan, error) {
	s := sections(text)
	p := Plan{
		Thesis:    s[markerThesis],
		Outline:   s[markerOutline],
		Queries:   bullets(s[markerQueries]),
		Reasoning: s[markerReasoning],
	}
	if p.Thesis == "" || p.Outline == "" {
		return Plan{}, domain.Malformed("plan is missing %s", missing(s, markerThesis, markerOutline))
	}
	// Research is assumed needed unless declined; writing is not assumed ready.
	p.ResearchNeeded = true
	if v, ok := yesNo(s[markerResearch]); ok {
		p.ResearchNeeded = v
	}
	p.Ready, _ = yesNo(s[markerReady])
	if !p.ResearchNeeded {
		p.Queries = nil
	}
	return p, nil
}

// Review is the editor's verdict on a critique.
type Review struct {
	Decision  domain.Decision
	Direction string
	Queries   []string
	Thesis    string
	Outline   string
	Reasoning string
}

// ParseReview parses a critique review completion. DECISION must be one of
// research, revise or approve.
func ParseReview(text string) (Review, error) {
	s := sections(text)
	word := strings.ToLower(strings.Trim(firstWord(s[markerDecision]), ".,;:!*[]"))
	var d domain.Decision
	switch word {
	case "research":
		d = domain.DecisionResearch
	case "revise", "revision":
		d = domain.DecisionRevise
	case "approve", "approved":
		d = domain.DecisionApprove
	default:
		return Review{}, domain.Malformed("unknown editor decision %q", s[markerDecision])
	}
	return Review{
		Decision:  d,
		Direction: s[markerDirection],
		Queries:   bullets(s[markerQueries]),
		Thesis:    s[markerThesis],
		Outline:   s[markerOutline],
		Reasoning: s[markerReasoning],
	}, nil
}

// Critique is the critic's structured evaluation.
type Critique struct {
	Evaluation   string
	Strengths    []string
	Improvements []string
	Length       string
	Approved     bool
	Reason       string
}

// ParseCritique parses a critic completion. Missing sections are left empty.
func ParseCritique(text string) Critique {
	s := sections(text)
	c := Critique{
		Evaluation:   s[markerEvaluation],
		Strengths:    bullets(s[markerStrengths]),
		Improvements: numbered(s[markerImprovements]),
		Length:       firstLine(s[markerLength]),
		Reason:       s[markerReason],
	}
	c.Approved, _ = yesNo(s[markerApproved])
	return c
}

// Feedback formats the critique for the editor and writer.
func (c Critique) Feedback() string {
	var b strings.Builder
	if c.Evaluation != "" {
		b.WriteString("EVALUATION: " + c.Evaluation + "\n\n")
	}
	if len(c.Strengths) > 0 {
		b.WriteString("STRENGTHS:\n")
		for _, s := range c.Strengths {
			b.WriteString("- " + s + "\n")
		}
		b.WriteString("\n")
	}
	if len(c.Improvements) > 0 {
		b.WriteString("AREAS FOR IMPROVEMENT:\n")
		for i, s := range c.Improvements {
			b.WriteString(strconv.Itoa(i+1) + ". " + s + "\n")
		}
		b.WriteString("\n")
	}
	if c.Length != "" {
		b.WriteString("LENGTH: " + c.Length + "\n")
	}
	if c.Reason != "" {
		verdict := "No"
		if c.Approved {
			verdict = "Yes"
		}
		b.WriteString("APPROVED: " + verdict + "\nREASON: " + c.Reason + "\n")
	}
	return strings.TrimSpace(b.String())
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func missing(s map[string]string, markers ...string) string {
	var out []string
	for _, m := range markers {
		if s[m] == "" {
			out = append(out, m)
		}
	}
	return strings.Join(out, " and ")
}
