package domain

// Defaults applied when a run configuration leaves a limit unset.
const (
	DefaultMaxEditingIterations = 5
	DefaultMaxWritingIterations = 3
	DefaultMaxCritiqueCycles    = 3
	DefaultMaxQueries           = 5
	DefaultMaxResultsPerQuery   = 3
	DefaultMaxEssayLength       = 1500

	MinEssayLength = 100
	MaxEssayLength = 10000
)

// Limits are the iteration ceilings and sizing knobs of a run.
// They are fixed when the State is created.
type Limits struct {
	MaxEditingIterations int `json:"max_editing_iterations" yaml:"max_editing_iterations" mapstructure:"max_editing_iterations"`
	MaxWritingIterations int `json:"max_writing_iterations" yaml:"max_writing_iterations" mapstructure:"max_writing_iterations"`
	MaxCritiqueCycles    int `json:"max_critique_cycles" yaml:"max_critique_cycles" mapstructure:"max_critique_cycles"`
	MaxQueries           int `json:"max_queries" yaml:"max_queries" mapstructure:"max_queries"`
	MaxResultsPerQuery   int `json:"max_results_per_query" yaml:"max_results_per_query" mapstructure:"max_results_per_query"`
	MaxEssayLength       int `json:"max_essay_length" yaml:"max_essay_length" mapstructure:"max_essay_length"`
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		MaxEditingIterations: DefaultMaxEditingIterations,
		MaxWritingIterations: DefaultMaxWritingIterations,
		MaxCritiqueCycles:    DefaultMaxCritiqueCycles,
		MaxQueries:           DefaultMaxQueries,
		MaxResultsPerQuery:   DefaultMaxResultsPerQuery,
		MaxEssayLength:       DefaultMaxEssayLength,
	}
}

// WithDefaults fills zero-valued limits from DefaultLimits.
// Negative values are kept so that Validate can reject them.
func (l Limits) WithDefaults() Limits {
	return l.Or(DefaultLimits())
}

// Or fills zero-valued limits from base.
func (l Limits) Or(base Limits) Limits {
	if l.MaxEditingIterations == 0 {
		l.MaxEditingIterations = base.MaxEditingIterations
	}
	if l.MaxWritingIterations == 0 {
		l.MaxWritingIterations = base.MaxWritingIterations
	}
	if l.MaxCritiqueCycles == 0 {
		l.MaxCritiqueCycles = base.MaxCritiqueCycles
	}
	if l.MaxQueries == 0 {
		l.MaxQueries = base.MaxQueries
	}
	if l.MaxResultsPerQuery == 0 {
		l.MaxResultsPerQuery = base.MaxResultsPerQuery
	}
	if l.MaxEssayLength == 0 {
		l.MaxEssayLength = base.MaxEssayLength
	}
	return l
}

// Validate rejects non-positive limits and out of range essay lengths.
func (l Limits) Validate() error {
	checks := []struct {
		field string
		value int
	}{
		{"max_editing_iterations", l.MaxEditingIterations},
		{"max_writing_iterations", l.MaxWritingIterations},
		{"max_critique_cycles", l.MaxCritiqueCycles},
		{"max_queries", l.MaxQueries},
		{"max_results_per_query", l.MaxResultsPerQuery},
		{"max_essay_length", l.MaxEssayLength},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return &ConfigurationError{Field: c.field, Reason: "must be a positive integer"}
		}
	}
	if l.MaxEssayLength < MinEssayLength || l.MaxEssayLength > MaxEssayLength {
		return &ConfigurationError{Field: "max_essay_length", Reason: "must be between 100 and 10000 words"}
	}
	return nil
}

// StepBound is the maximum number of agent steps a run can take.
//
// The editing loop alternates editor and researcher and ends on an editor, so
// it takes at most 2E-1 steps. Every critique cycle runs writer, critic and
// editor, optionally followed by a researcher handoff, and the last cycle
// never commissions research: 4*min(W, C)-1 steps.
func (l Limits) StepBound() int {
	cycles := l.MaxCritiqueCycles
	if l.MaxWritingIterations < cycles {
		cycles = l.MaxWritingIterations
	}
	return 2*l.MaxEditingIterations + 4*cycles - 2
}

// Default model identifiers per role.
const (
	DefaultEditorModel     = "gpt-5.1"
	DefaultResearcherModel = "gpt-5-nano"
	DefaultWriterModel     = "gpt-5-mini"
	DefaultCriticModel     = "claude-sonnet-4-5"
)

// Models holds the model identifier used by each role.
type Models struct {
	Editor     string `json:"editor" yaml:"editor" mapstructure:"editor"`
	Researcher string `json:"researcher" yaml:"researcher" mapstructure:"researcher"`
	Writer     string `json:"writer" yaml:"writer" mapstructure:"writer"`
	Critic     string `json:"critic" yaml:"critic" mapstructure:"critic"`
}

// DefaultModels returns the default model assignment.
func DefaultModels() Models {
	return Models{
		Editor:     DefaultEditorModel,
		Researcher: DefaultResearcherModel,
		Writer:     DefaultWriterModel,
		Critic:     DefaultCriticModel,
	}
}

// WithDefaults fills empty model ids from DefaultModels.
func (m Models) WithDefaults() Models {
	return m.Or(DefaultModels())
}

// Or fills empty model ids from base.
func (m Models) Or(base Models) Models {
	if m.Editor == "" {
		m.Editor = base.Editor
	}
	if m.Researcher == "" {
		m.Researcher = base.Researcher
	}
	if m.Writer == "" {
		m.Writer = base.Writer
	}
	if m.Critic == "" {
		m.Critic = base.Critic
	}
	return m
}

// For returns the model assigned to role.
func (m Models) For(role Role) string {
	switch role {
	case RoleEditor:
		return m.Editor
	case RoleResearcher:
		return m.Researcher
	case RoleWriter:
		return m.Writer
	case RoleCritic:
		return m.Critic
	}
	return ""
}
