package service

import (
	"fmt"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// Epsilon absorbs binary floating-point rounding in the multiplier
// product: two factors whose exact product is 2.1 may compute as
// 2.0999999999999996 and must still reach a 2.1 cell.
const Epsilon = 1e-9

// EvaluateTier evaluates one percentage tier: the threshold cell is looked
// up, an absent cell counts as reached, a numeric cell is compared against
// the multiplier with epsilon tolerance.
//
// One legacy carve-out is reproduced exactly: with no bone-density score
// and a multiplier of exactly 1.0, a numeric cell is forced to not
// reached, overriding the generic comparison. This preserves the baseline
// classification convention of the printed no-BMD rows and is flagged for
// domain-expert review rather than simplified away.
func EvaluateTier(catalog *dataset.Catalog, sex domain.Sex, tier domain.Tier, ageBin int, densityKey string, bmdUsed bool, multiplier float64) (domain.TierResult, error) {
	result := domain.TierResult{Tier: tier}

	required, err := LookupRequiredMultiplier(catalog, sex, tier, ageBin, densityKey)
	if err != nil {
		return result, err
	}
	result.RequiredMultiplier = required

	if ThresholdReachedFromLookup(required) {
		result.Reached = true
		result.Reason = fmt.Sprintf("baseline risk alone crosses the %d%% threshold (no multiplier required)", tier)
		return result, nil
	}

	if !bmdUsed && multiplier == 1.0 {
		result.Reached = false
		result.Reason = fmt.Sprintf("baseline convention: without bone density and without risk factors the %d%% threshold is not reached", tier)
		return result, nil
	}

	if multiplier >= *required-Epsilon {
		result.Reached = true
		result.Reason = fmt.Sprintf("multiplier %.4g reaches required factor %.4g", multiplier, *required)
	} else {
		result.Reached = false
		result.Reason = fmt.Sprintf("multiplier %.4g below required factor %.4g", multiplier, *required)
	}
	return result, nil
}

// HighestBand derives the risk band from the tier results. Band naming
// always takes the highest satisfied tier; a lower tier being not reached
// while a higher one is reached is possible and intentional, since the
// lookups are independent.
func HighestBand(tiers []domain.TierResult) domain.RiskBand {
	reached := map[domain.Tier]bool{}
	for _, t := range tiers {
		if t.Reached {
			reached[t.Tier] = true
		}
	}

	switch {
	case reached[domain.TIER_10]:
		return domain.BAND_10_PLUS
	case reached[domain.TIER_5]:
		return domain.BAND_5_TO_10
	case reached[domain.TIER_3]:
		return domain.BAND_3_TO_5
	default:
		return domain.BAND_BELOW_3
	}
}
