package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// DefaultCacheSize bounds the evaluation result cache when the configured
// size is missing or invalid.
const DefaultCacheSize = 512

// Evaluator runs the complete guideline evaluation workflow. It is
// stateless apart from the immutable compiled catalog and a bounded
// memoization cache; it never retains or mutates a caller's selection set.
type Evaluator struct {
	logger  *logrus.Logger
	catalog *dataset.Catalog
	cache   *lru.Cache[string, *domain.EvaluationResult]
}

// NewEvaluator creates an evaluator over the compiled catalog.
func NewEvaluator(logger *logrus.Logger, catalog *dataset.Catalog, cacheSize int) (*Evaluator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *domain.EvaluationResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation cache: %w", err)
	}
	return &Evaluator{
		logger:  logger,
		catalog: catalog,
		cache:   cache,
	}, nil
}

// Catalog exposes the compiled catalog for read-only consumers such as the
// API listing endpoints.
func (e *Evaluator) Catalog() *dataset.Catalog {
	return e.catalog
}

// ToggleFactor applies one risk-factor toggle to a selection under the
// mutual-exclusion rules and returns the new selection.
func (e *Evaluator) ToggleFactor(selected []string, factorID string) ([]string, error) {
	if _, ok := e.catalog.RiskFactor(factorID); !ok {
		return append([]string(nil), selected...), fmt.Errorf("%w: %s", domain.ErrUnknownRiskFactor, factorID)
	}
	return EnforceExclusionRules(e.catalog, e.logger, selected, factorID), nil
}

// Evaluate performs the complete risk evaluation workflow.
func (e *Evaluator) Evaluate(ctx context.Context, req *domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation request: %w", err)
	}

	key := cacheKey(req)
	if cached, ok := e.cache.Get(key); ok {
		e.logger.WithField("cache_key", key).Debug("Evaluation served from cache")
		return cached, nil
	}

	e.logger.WithFields(logrus.Fields{
		"sex":              req.Sex,
		"age":              req.Age,
		"has_bmd":          req.TScore != nil,
		"selected_factors": len(req.SelectedFactorIDs),
	}).Info("Starting risk evaluation")

	result, err := e.evaluate(req)
	if err != nil {
		return nil, err
	}

	result.DatasetVersion = e.catalog.Version()
	result.Guideline = e.catalog.Guideline()
	result.ProcessingTime = time.Since(startTime)
	result.EvaluatedAt = time.Now().UTC()

	if result.Advisory != nil {
		e.logger.WithFields(logrus.Fields{
			"advisory_code": result.Advisory.Code,
		}).Info("Risk evaluation suppressed by advisory")
	} else {
		e.logger.WithFields(logrus.Fields{
			"band":            result.Band.String(),
			"multiplier":      result.Multiplier,
			"trigger_present": result.TriggerPresent,
			"strategy":        result.Therapy.Strategy.String(),
			"substance_count": len(result.Substances),
			"processing_time": result.ProcessingTime,
		}).Info("Risk evaluation completed")
	}

	e.cache.Add(key, result)
	return result, nil
}

// evaluate contains the pure evaluation pipeline; everything around it is
// caching, logging and bookkeeping.
func (e *Evaluator) evaluate(req *domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	// Out-of-scope inputs suppress evaluation. Valid states, not failures.
	ageBin := AgeBin(req.Age)
	if ageBin == nil {
		return &domain.EvaluationResult{
			Advisory: &domain.Advisory{
				Code:    domain.AdvisoryAgeBelowRange,
				Message: "The guideline tables start at age 50; no risk classification is computed below that age.",
			},
		}, nil
	}
	if req.TScore != nil && *req.TScore > 0.0 {
		return &domain.EvaluationResult{
			Advisory: &domain.Advisory{
				Code:    domain.AdvisoryTScoreAboveZero,
				Message: "A T-score above 0.0 is outside the tabulated range; no risk classification is computed.",
			},
		}, nil
	}

	bmdUsed := req.TScore != nil
	selectedFactors := SelectRiskFactors(e.catalog, req.SelectedFactorIDs)
	multiplier := CombinedMultiplier(selectedFactors)

	tiers := make([]domain.TierResult, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		densityKey := domain.NoBMDKey
		if bmdUsed {
			bins, err := e.catalog.DensityBins(req.Sex, tier)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate %d%% tier: %w", tier, err)
			}
			bin, err := MapTScoreToBin(bins, *req.TScore)
			if err != nil {
				// An empty bin set means a corrupt reference dataset; fail
				// loudly rather than guess.
				return nil, fmt.Errorf("failed to evaluate %d%% tier: %w", tier, err)
			}
			densityKey = DensityKey(bin, true)
		}

		tierResult, err := EvaluateTier(e.catalog, req.Sex, tier, *ageBin, densityKey, bmdUsed, multiplier)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tierResult)
	}

	band := HighestBand(tiers)
	triggers := DetectTriggers(e.catalog, req.SelectedFactorIDs)
	plan := DeriveTherapyPlan(band, triggers.Present())
	candidates := CandidateSubstances(e.catalog, plan.Strategy)
	substances := RankSubstancesByEvidence(e.catalog, candidates)

	return &domain.EvaluationResult{
		AgeBin:          ageBin,
		BMDUsed:         bmdUsed,
		Multiplier:      multiplier,
		SelectedFactors: selectedFactors,
		Tiers:           tiers,
		Band:            band,
		Triggers:        triggers,
		TriggerPresent:  triggers.Present(),
		Recommendation:  e.generateRecommendation(band, plan, triggers),
		Therapy:         plan,
		Substances:      substances,
	}, nil
}

// generateRecommendation creates the human-readable recommendation line.
func (e *Evaluator) generateRecommendation(band domain.RiskBand, plan *domain.TherapyPlan, triggers domain.TriggerResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "3-year fracture risk %s: %s", band.String(), plan.Label)

	if triggers.ImminentRisk {
		sb.WriteString(". Imminent fracture risk present")
	}
	if triggers.StrongIrreversible {
		sb.WriteString(". Strong or irreversible risk factor present")
	}
	if plan.DEGAMDeviation {
		sb.WriteString(". Note: DEGAM grades this recommendation weaker than DVO")
	}
	sb.WriteString(".")
	return sb.String()
}

// cacheKey canonicalizes a request: the selection set is order-insensitive
// and duplicates collapse, so permutations of the same inputs share one
// cache entry.
func cacheKey(req *domain.EvaluationRequest) string {
	ids := make([]string, 0, len(req.SelectedFactorIDs))
	seen := map[string]bool{}
	for _, id := range req.SelectedFactorIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	tscore := "none"
	if req.TScore != nil {
		tscore = strconv.FormatFloat(*req.TScore, 'f', -1, 64)
	}
	return fmt.Sprintf("%s|%d|%s|%s", req.Sex, req.Age, tscore, strings.Join(ids, ","))
}
