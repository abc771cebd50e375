package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/types"
)

func TestDirectorySuggestions(t *testing.T) {
	var issues []types.Issue
	for i := 0; i < 6; i++ {
		issues = append(issues, types.Issue{Category: types.CategoryComplexity, Severity: types.SeverityWarning})
	}
	godClass := types.Pattern{
		Name:     "God Class",
		Location: types.CodeLocation{File: "/src/app.py", LineStart: 3, LineEnd: 900},
		Metadata: map[string]any{"class_name": "Everything"},
	}

	got := directorySuggestions(issues, []types.Pattern{godClass, {Name: "Singleton"}})
	require.Len(t, got, 2)
	assert.Equal(t, "Reduce Overall Code Complexity", got[0].Title)
	assert.Equal(t, 2, got[0].Priority)
	assert.Equal(t, "large", got[0].EstimatedEffort)
	assert.Equal(t, "Refactor Everything", got[1].Title)
	assert.Equal(t, godClass.Location, got[1].Location)
	assert.Equal(t, 3, got[1].Priority)

	assert.Empty(t, directorySuggestions(issues[:5], nil))
}

func TestDirectorySuggestions_CriticalSecurity(t *testing.T) {
	got := directorySuggestions([]types.Issue{
		{Category: types.CategorySecurity, Severity: types.SeverityError},
		{Category: types.CategorySecurity, Severity: types.SeverityCritical},
	}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, types.CategorySecurity, got[0].Category)
	assert.Equal(t, 1, got[0].Priority)
}

func TestAggregateMetrics(t *testing.T) {
	modules := []*types.ModuleAnalysis{
		{Metrics: &types.Metrics{
			LinesOfCode: 30, LinesOfComments: 3, CyclomaticComplexity: 4, CognitiveComplexity: 2,
			MaintainabilityIndex: 70, TechnicalDebtRatio: 0.1, AverageFunctionLength: 10, MaxFunctionLength: 20,
			NumberOfFunctions: 3, NumberOfClasses: 1, DuplicateLines: 2,
		}},
		{Metrics: &types.Metrics{
			LinesOfCode: 10, LinesOfComments: 1, CyclomaticComplexity: 2, CognitiveComplexity: 0,
			MaintainabilityIndex: 90, TechnicalDebtRatio: 0.3, AverageFunctionLength: 4, MaxFunctionLength: 6,
			NumberOfFunctions: 2,
		}},
	}

	agg := aggregateMetrics(modules)
	assert.Equal(t, 40, agg.LinesOfCode)
	assert.Equal(t, 4, agg.LinesOfComments)
	assert.Equal(t, 5, agg.NumberOfFunctions)
	assert.Equal(t, 1, agg.NumberOfClasses)
	assert.Equal(t, 2, agg.DuplicateLines)
	assert.InDelta(t, 3.5, agg.CyclomaticComplexity, 1e-9)
	assert.InDelta(t, 1.5, agg.CognitiveComplexity, 1e-9)
	assert.InDelta(t, 75.0, agg.MaintainabilityIndex, 1e-9)
	assert.InDelta(t, 0.15, agg.TechnicalDebtRatio, 1e-9)
	assert.InDelta(t, 7.0, agg.AverageFunctionLength, 1e-9)
	assert.Equal(t, 20, agg.MaxFunctionLength)
	assert.InDelta(t, 8.0, agg.CodeToCommentRatio, 1e-9)
}

func TestAggregateMetrics_ZeroLOCUsesPlainMean(t *testing.T) {
	agg := aggregateMetrics([]*types.ModuleAnalysis{
		{Metrics: &types.Metrics{MaintainabilityIndex: 100}},
		{Metrics: &types.Metrics{MaintainabilityIndex: 50}},
	})
	assert.InDelta(t, 75.0, agg.MaintainabilityIndex, 1e-9)

	assert.Equal(t, 100.0, aggregateMetrics(nil).MaintainabilityIndex)
}
