package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

func TestEnforceExclusionRulesSingleChoice(t *testing.T) {
	catalog := loadTestCatalog(t)
	logger := testLogger()

	// Selecting one member of an exclusive group.
	selection := EnforceExclusionRules(catalog, logger, nil, "fall_single")
	assert.Equal(t, []string{"fall_single"}, selection)

	// Selecting the other member replaces the first.
	selection = EnforceExclusionRules(catalog, logger, selection, "fall_recurrent")
	assert.Equal(t, []string{"fall_recurrent"}, selection)

	// Factors outside the group are untouched by the swap.
	selection = EnforceExclusionRules(catalog, logger, selection, "smoking")
	selection = EnforceExclusionRules(catalog, logger, selection, "fall_single")
	assert.ElementsMatch(t, []string{"smoking", "fall_single"}, selection)
}

func TestEnforceExclusionRulesDeselect(t *testing.T) {
	catalog := loadTestCatalog(t)
	logger := testLogger()

	selection := []string{"smoking", "fall_single"}
	selection = EnforceExclusionRules(catalog, logger, selection, "fall_single")
	assert.Equal(t, []string{"smoking"}, selection)

	// Deselecting never adds factors.
	selection = EnforceExclusionRules(catalog, logger, selection, "smoking")
	assert.Empty(t, selection)
}

func TestEnforceExclusionRulesAtMostOneMember(t *testing.T) {
	catalog := loadTestCatalog(t)
	logger := testLogger()

	meg, ok := catalog.ExclusionGroup("meg_glucocorticoids")
	require.True(t, ok)

	var selection []string
	for _, member := range meg.MemberIDs {
		selection = EnforceExclusionRules(catalog, logger, selection, member)

		count := 0
		for _, id := range selection {
			for _, m := range meg.MemberIDs {
				if id == m {
					count++
				}
			}
		}
		assert.LessOrEqual(t, count, 1, "selection holds more than one exclusive member")
	}
}

func TestEnforceExclusionRulesUnknownFactor(t *testing.T) {
	catalog := loadTestCatalog(t)
	logger, hook := logrustest.NewNullLogger()

	selection := []string{"smoking"}
	got := EnforceExclusionRules(catalog, logger, selection, "does_not_exist")
	assert.Equal(t, selection, got, "unknown toggle must be a no-op")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "does_not_exist", hook.LastEntry().Data["factor_id"])
}

func TestEnforceExclusionRulesDoesNotMutateInput(t *testing.T) {
	catalog := loadTestCatalog(t)
	logger := testLogger()

	selection := []string{"fall_single", "smoking"}
	_ = EnforceExclusionRules(catalog, logger, selection, "fall_recurrent")
	assert.Equal(t, []string{"fall_single", "smoking"}, selection)
}

func TestSelectRiskFactorsGroupWinners(t *testing.T) {
	catalog := loadTestCatalog(t)

	// Highest relative risk wins within each exclusive group.
	selected := SelectRiskFactors(catalog, []string{"fall_single", "timed_up_and_go", "rheumatoid_arthritis"})
	require.Len(t, selected, 2)
	assert.Equal(t, "timed_up_and_go", selected[0].Factor.ID)
	assert.Equal(t, domain.POOL_FALL_RISK, selected[0].Pool)
	assert.Equal(t, "rheumatoid_arthritis", selected[1].Factor.ID)
	assert.Equal(t, domain.POOL_RHEUMA_GC, selected[1].Pool)
}

func TestSelectRiskFactorsTopTwoOverall(t *testing.T) {
	catalog := loadTestCatalog(t)

	// gc_high 2.3, hip_fracture_recent 2.2, vertebral_fracture_prior 2.0,
	// fall_recurrent 1.8: the pool survivors are cut to the top two.
	selected := SelectRiskFactors(catalog, []string{
		"fall_recurrent", "gc_high_dose", "vertebral_fracture_prior", "hip_fracture_recent",
	})
	require.Len(t, selected, 2)
	assert.Equal(t, "gc_high_dose", selected[0].Factor.ID)
	assert.Equal(t, "hip_fracture_recent", selected[1].Factor.ID)
	assert.Equal(t, domain.POOL_OTHER_1, selected[1].Pool)
}

func TestSelectRiskFactorsSkipsTriggerOnly(t *testing.T) {
	catalog := loadTestCatalog(t)

	selected := SelectRiskFactors(catalog, []string{"vertebral_fracture_recent", "smoking"})
	require.Len(t, selected, 1)
	assert.Equal(t, "smoking", selected[0].Factor.ID)
}

func TestSelectRiskFactorsDeterministicTieBreak(t *testing.T) {
	catalog := loadTestCatalog(t)

	// copd and immobility share a relative risk of 1.4; factor id breaks
	// the tie independent of input order.
	forward := SelectRiskFactors(catalog, []string{"copd", "immobility"})
	backward := SelectRiskFactors(catalog, []string{"immobility", "copd"})
	require.Len(t, forward, 2)
	assert.Equal(t, forward, backward)
	assert.Equal(t, "copd", forward[0].Factor.ID)
	assert.Equal(t, "immobility", forward[1].Factor.ID)
}

func TestCombinedMultiplier(t *testing.T) {
	catalog := loadTestCatalog(t)

	assert.Equal(t, 1.0, CombinedMultiplier(nil))

	one := SelectRiskFactors(catalog, []string{"smoking"})
	assert.InDelta(t, 1.3, CombinedMultiplier(one), 1e-12)

	two := SelectRiskFactors(catalog, []string{"timed_up_and_go", "rheumatoid_arthritis"})
	require.Len(t, two, 2)
	product := CombinedMultiplier(two)
	assert.InDelta(t, 2.1, product, 1e-9)

	// Commutative in its inputs.
	swapped := SelectRiskFactors(catalog, []string{"rheumatoid_arthritis", "timed_up_and_go"})
	assert.Equal(t, product, CombinedMultiplier(swapped))
}

func TestSelectRiskFactorsNeverMoreThanTwo(t *testing.T) {
	catalog := loadTestCatalog(t)

	var all []string
	for _, rf := range catalog.RiskFactors() {
		all = append(all, rf.ID)
	}
	selected := SelectRiskFactors(catalog, all)
	assert.LessOrEqual(t, len(selected), 2)
}
