// Package service implements the DVO fracture-risk decision engine:
// threshold lookup, risk-factor selection, tier evaluation, trigger
// detection, therapy derivation and substance ranking.
package service

import (
	"fmt"
	"strconv"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// Age binning bounds of the guideline tables. Ages below MinTableAge are
// out of scope for the calculator; ages at or above MaxTableAgeBin clamp to
// the last bin.
const (
	MinTableAge    = 50
	MaxTableAgeBin = 90
)

// AgeBin maps an age in whole years to its 5-year table bin. It returns
// nil for ages below 50, which suppress evaluation entirely.
func AgeBin(age int) *int {
	if age < MinTableAge {
		return nil
	}
	bin := (age / 5) * 5
	if bin > MaxTableAgeBin {
		bin = MaxTableAgeBin
	}
	return &bin
}

// MapTScoreToBin maps a raw bone-density T-score onto one of the table's
// available bins. bins must be sorted best (least negative) to worst.
// Policy, in order: exact match wins; a score better than the best bin
// snaps to the best bin; a score worse than the worst bin snaps to the
// worst bin; a score strictly between two adjacent bins snaps to the worse
// neighbor. Rounding down in severity keeps the lookup consistent with the
// printed guideline tables.
func MapTScoreToBin(bins []float64, score float64) (float64, error) {
	if len(bins) == 0 {
		return 0, domain.ErrEmptyBinSet
	}

	best := bins[0]
	worst := bins[len(bins)-1]

	if score >= best {
		return best, nil
	}
	if score <= worst {
		return worst, nil
	}
	// First bin at or below the score: an exact match, or the worse of the
	// two adjacent neighbors.
	for _, bin := range bins {
		if score >= bin {
			return bin, nil
		}
	}
	return worst, nil
}

// DensityKey formats a density bin the way the threshold tables encode it:
// one decimal place, or the no-data sentinel when hasBMD is false.
func DensityKey(bin float64, hasBMD bool) string {
	if !hasBMD {
		return domain.NoBMDKey
	}
	return strconv.FormatFloat(bin, 'f', 1, 64)
}

// LookupRequiredMultiplier resolves the threshold cell for the given
// coordinates. A nil multiplier with a nil error is the absent cell.
func LookupRequiredMultiplier(catalog *dataset.Catalog, sex domain.Sex, tier domain.Tier, ageBin int, densityKey string) (*float64, error) {
	rm, err := catalog.RequiredMultiplier(sex, tier, ageBin, densityKey)
	if err != nil {
		return nil, fmt.Errorf("threshold lookup %s/%d%% age %d density %s: %w", sex, tier, ageBin, densityKey, err)
	}
	return rm, nil
}

// ThresholdReachedFromLookup applies the guideline convention for absent
// cells: no multiplier needed means the baseline risk alone already
// crosses the tier.
func ThresholdReachedFromLookup(requiredMultiplier *float64) bool {
	return requiredMultiplier == nil
}
