package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// EnforceExclusionRules applies a toggle of one risk factor to the current
// selection and returns the resulting selection. Deselecting removes the
// factor with no side effects. Selecting a member of a single-choice group
// removes every other member of the same group first, so the selection
// never holds more than one member per exclusive group. A factor outside
// any group, or in a group with a different mode, toggles without side
// effects.
//
// An unknown factor id is a caller programming error: it is logged and the
// selection is returned unchanged.
func EnforceExclusionRules(catalog *dataset.Catalog, logger *logrus.Logger, selected []string, factorID string) []string {
	if _, ok := catalog.RiskFactor(factorID); !ok {
		logger.WithField("factor_id", factorID).Error("Toggle for unknown risk factor ignored")
		return append([]string(nil), selected...)
	}

	currently := false
	for _, id := range selected {
		if id == factorID {
			currently = true
			break
		}
	}

	if currently {
		out := make([]string, 0, len(selected)-1)
		for _, id := range selected {
			if id != factorID {
				out = append(out, id)
			}
		}
		return out
	}

	drop := map[string]bool{}
	if megID, ok := catalog.ExclusionGroupOf(factorID); ok {
		if meg, ok := catalog.ExclusionGroup(megID); ok && meg.Mode == domain.SINGLE_CHOICE_OPTIONAL {
			for _, member := range meg.MemberIDs {
				if member != factorID {
					drop[member] = true
				}
			}
		}
	}

	out := make([]string, 0, len(selected)+1)
	for _, id := range selected {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return append(out, factorID)
}

// SelectRiskFactors applies the guideline selection rules to the selected
// factor ids: one best factor each from the fall-risk and rheumatoid/
// glucocorticoid groups, up to two from the remainder, then the top two of
// that pool overall by relative risk. Only calculation-eligible factors
// participate. Ties resolve by factor id ascending so the outcome is
// independent of input ordering.
func SelectRiskFactors(catalog *dataset.Catalog, selectedIDs []string) []domain.SelectedRiskFactor {
	var fallRisk, rheumaGC, other []domain.RiskFactor
	seen := map[string]bool{}

	for _, id := range selectedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		rf, ok := catalog.RiskFactor(id)
		if !ok || !rf.IncludedInRiskCalc || rf.RelativeRisk == nil {
			continue
		}
		switch rf.Group {
		case domain.GROUP_FALL_RISK:
			fallRisk = append(fallRisk, *rf)
		case domain.GROUP_RHEUMA_GC:
			rheumaGC = append(rheumaGC, *rf)
		default:
			other = append(other, *rf)
		}
	}

	sortByRelativeRiskDesc(fallRisk)
	sortByRelativeRiskDesc(rheumaGC)
	sortByRelativeRiskDesc(other)

	pool := make([]domain.SelectedRiskFactor, 0, 4)
	if len(fallRisk) > 0 {
		pool = append(pool, domain.SelectedRiskFactor{Factor: fallRisk[0], Pool: domain.POOL_FALL_RISK})
	}
	if len(rheumaGC) > 0 {
		pool = append(pool, domain.SelectedRiskFactor{Factor: rheumaGC[0], Pool: domain.POOL_RHEUMA_GC})
	}
	if len(other) > 0 {
		pool = append(pool, domain.SelectedRiskFactor{Factor: other[0], Pool: domain.POOL_OTHER_1})
	}
	if len(other) > 1 {
		pool = append(pool, domain.SelectedRiskFactor{Factor: other[1], Pool: domain.POOL_OTHER_2})
	}

	// Never more than two factors total in the multiplier.
	sort.SliceStable(pool, func(i, j int) bool {
		ri, rj := *pool[i].Factor.RelativeRisk, *pool[j].Factor.RelativeRisk
		if ri != rj {
			return ri > rj
		}
		return pool[i].Factor.ID < pool[j].Factor.ID
	})
	if len(pool) > 2 {
		pool = pool[:2]
	}

	return pool
}

// CombinedMultiplier computes the combined risk-factor multiplier: exactly
// 1.0 with no factors, the single relative risk with one, the product with
// two.
func CombinedMultiplier(selected []domain.SelectedRiskFactor) float64 {
	multiplier := 1.0
	for _, s := range selected {
		multiplier *= *s.Factor.RelativeRisk
	}
	return multiplier
}

func sortByRelativeRiskDesc(factors []domain.RiskFactor) {
	sort.SliceStable(factors, func(i, j int) bool {
		ri, rj := *factors[i].RelativeRisk, *factors[j].RelativeRisk
		if ri != rj {
			return ri > rj
		}
		return factors[i].ID < factors[j].ID
	})
}
