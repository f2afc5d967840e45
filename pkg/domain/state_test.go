package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

func TestNewState(t *testing.T) {
	s, err := domain.NewState("  The ethics of urban beekeeping ", domain.DefaultLimits(), domain.Models{})
	require.NoError(t, err)

	assert.Equal(t, "The ethics of urban beekeeping", s.Topic)
	assert.Equal(t, domain.DefaultModels(), s.Models)
	assert.Nil(t, s.Thesis)
	assert.Nil(t, s.Draft)
	assert.Empty(t, s.ResearchQueries)
	assert.Empty(t, s.ResearchResults)
	assert.Zero(t, s.EditingIteration)
	assert.Equal(t, domain.PhaseEditing, s.Phase())
	assert.NoError(t, s.CheckInvariants())
}

func TestNewState_Configuration(t *testing.T) {
	tests := []struct {
		name   string
		topic  string
		limits func(*domain.Limits)
		field  string
	}{
		{"empty topic", "   ", func(*domain.Limits) {}, "topic"},
		{"zero editing", "t", func(l *domain.Limits) { l.MaxEditingIterations = 0 }, "max_editing_iterations"},
		{"negative critique", "t", func(l *domain.Limits) { l.MaxCritiqueCycles = -1 }, "max_critique_cycles"},
		{"zero results", "t", func(l *domain.Limits) { l.MaxResultsPerQuery = 0 }, "max_results_per_query"},
		{"short essay", "t", func(l *domain.Limits) { l.MaxEssayLength = 10 }, "max_essay_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := domain.DefaultLimits()
			tt.limits(&limits)

			s, err := domain.NewState(tt.topic, limits, domain.DefaultModels())
			require.Error(t, err)
			assert.Nil(t, s)

			var conf *domain.ConfigurationError
			require.True(t, errors.As(err, &conf))
			assert.Equal(t, tt.field, conf.Field)
		})
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	s, err := domain.NewState("topic", domain.DefaultLimits(), domain.DefaultModels())
	require.NoError(t, err)
	s.Thesis = domain.Ptr("original")
	s.ResearchQueries = []string{"q"}
	s.ResearchResults = []domain.ResearchResult{{Query: "q", Hits: []domain.SearchHit{{Title: "a"}}}}

	c := s.Clone()
	*c.Thesis = "changed"
	c.ResearchQueries[0] = "changed"
	c.ResearchResults[0].Hits[0].Title = "changed"

	assert.Equal(t, "original", *s.Thesis)
	assert.Equal(t, "q", s.ResearchQueries[0])
	assert.Equal(t, "a", s.ResearchResults[0].Hits[0].Title)
}

func TestState_CheckInvariants(t *testing.T) {
	valid := func() *domain.State {
		s, _ := domain.NewState("topic", domain.DefaultLimits(), domain.DefaultModels())
		return s
	}

	tests := []struct {
		name   string
		mutate func(*domain.State)
	}{
		{"complete without thesis", func(s *domain.State) { s.EditingComplete = true; s.Outline = domain.Ptr("o") }},
		{"draft before editing", func(s *domain.State) { s.Draft = domain.Ptr("d") }},
		{"editing over max", func(s *domain.State) { s.EditingIteration = s.Limits.MaxEditingIterations + 1 }},
		{"critique negative", func(s *domain.State) { s.CritiqueCycle = -1 }},
		{"complete without reason", func(s *domain.State) {
			s.Thesis, s.Outline, s.Draft = domain.Ptr("t"), domain.Ptr("o"), domain.Ptr("d")
			s.EditingComplete = true
			s.EssayComplete = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.CheckInvariants()
			assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		})
	}
}

func TestLimits_StepBound(t *testing.T) {
	tests := []struct {
		e, w, c int
		want    int
	}{
		{1, 1, 1, 4},
		{5, 3, 3, 20},
		{2, 5, 2, 10},
		{2, 1, 3, 6},
	}
	for _, tt := range tests {
		l := domain.Limits{MaxEditingIterations: tt.e, MaxWritingIterations: tt.w, MaxCritiqueCycles: tt.c}
		assert.Equal(t, tt.want, l.StepBound(), "E=%d W=%d C=%d", tt.e, tt.w, tt.c)
	}
}
