package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

func TestCandidateSubstancesByStrategy(t *testing.T) {
	catalog := loadTestCatalog(t)

	assert.Nil(t, CandidateSubstances(catalog, domain.STRATEGY_NONE))

	anti := CandidateSubstances(catalog, domain.STRATEGY_ANTIRESORPTIVE)
	assert.Contains(t, anti, "alendronate")
	assert.Contains(t, anti, "denosumab")
	assert.NotContains(t, anti, "etidronate", "inactive registry entry")
	assert.NotContains(t, anti, "teriparatide", "wrong therapy class")

	consider := CandidateSubstances(catalog, domain.STRATEGY_CONSIDER_ANTIRESORPTIVE)
	assert.ElementsMatch(t, anti, consider)
}

func TestCandidateSubstancesInitialOsteoanabolicNarrowing(t *testing.T) {
	catalog := loadTestCatalog(t)

	// The registry lists three active osteoanabolic substances; only the
	// two approved for the initial-therapy indication may surface.
	require.Len(t, catalog.ActiveSubstancesOfClass(domain.OSTEOANABOLIC), 3)

	candidates := CandidateSubstances(catalog, domain.STRATEGY_START_OSTEOANABOLIC)
	assert.ElementsMatch(t, []string{"teriparatide", "romosozumab"}, candidates)
	assert.NotContains(t, candidates, "abaloparatide")
}

func TestRankSubstancesByEvidence(t *testing.T) {
	catalog := loadTestCatalog(t)

	candidates := CandidateSubstances(catalog, domain.STRATEGY_ANTIRESORPTIVE)
	ranked := RankSubstancesByEvidence(catalog, candidates)
	require.Len(t, ranked, len(candidates))

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.SubstanceID)
	}
	// A-grade hip+vertebral substances alphabetically, then A vertebral
	// only, then B, then the substance without an evidence entry.
	assert.Equal(t, []string{
		"alendronate", "denosumab", "risedronate", "zoledronate",
		"ibandronate", "raloxifene", "hormone_therapy",
	}, ids)

	// Ranks are 1-based and sequential.
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRankSubstancesStableUnderPermutation(t *testing.T) {
	catalog := loadTestCatalog(t)

	candidates := CandidateSubstances(catalog, domain.STRATEGY_ANTIRESORPTIVE)
	want := RankSubstancesByEvidence(catalog, candidates)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]string(nil), candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := RankSubstancesByEvidence(catalog, shuffled)
		assert.Equal(t, want, got, "ranking must be independent of input order")
	}
}

func TestRankSubstancesAnnotations(t *testing.T) {
	catalog := loadTestCatalog(t)

	ranked := RankSubstancesByEvidence(catalog, []string{"hormone_therapy", "ibandronate", "alendronate"})
	require.Len(t, ranked, 3)

	assert.Equal(t, "alendronate", ranked[0].SubstanceID)
	assert.Equal(t, "evidence level A", ranked[0].EvidenceChip)
	assert.Equal(t, "Hip + Vertebral", ranked[0].EfficacyHint)
	assert.NotEmpty(t, ranked[0].Sources)
	require.NotNil(t, ranked[0].Admin)
	assert.True(t, ranked[0].Admin.Approval[domain.MALE].Approved)

	assert.Equal(t, "ibandronate", ranked[1].SubstanceID)
	assert.Equal(t, "Vertebral", ranked[1].EfficacyHint)

	// Missing evidence entry: ranked last with reduced annotation.
	assert.Equal(t, "hormone_therapy", ranked[2].SubstanceID)
	assert.Nil(t, ranked[2].Evidence)
	assert.Equal(t, "no evidence entry", ranked[2].EvidenceChip)
	assert.Equal(t, "unclear", ranked[2].EfficacyHint)
}

func TestRankSubstancesSkipsUnknownAndDuplicateIDs(t *testing.T) {
	catalog := loadTestCatalog(t)

	ranked := RankSubstancesByEvidence(catalog, []string{"alendronate", "alendronate", "not_registered"})
	require.Len(t, ranked, 1)
	assert.Equal(t, "alendronate", ranked[0].SubstanceID)
}
