// Package dataset loads the static reference datasets (threshold tables,
// risk-factor catalog, substance evidence, administration metadata and the
// substance registry) and compiles them into the immutable lookup catalog
// the engine works against.
//
// The datasets ship embedded in the binary; a configured dataset directory
// can override each file individually. They are loaded exactly once per
// process lifetime and never change at runtime.
package dataset

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

//go:embed data/*.json
var embedded embed.FS

// Dataset file names, identical for the embedded copies and directory
// overrides.
const (
	FileThresholds     = "thresholds.json"
	FileRiskFactors    = "riskfactors.json"
	FileEvidence       = "evidence.json"
	FileAdministration = "administration.json"
	FileRegistry       = "registry.json"
)

// ExclusionGroupMeta is the optional catalog metadata for a declared
// mutual-exclusion group. Groups referenced only from risk factors are
// synthesized during compilation.
type ExclusionGroupMeta struct {
	ID    string               `json:"id"`
	Label string               `json:"label,omitempty"`
	Mode  domain.ExclusionMode `json:"mode,omitempty"`
}

// Bundle holds the five parsed reference datasets before compilation.
type Bundle struct {
	Version            string
	Guideline          string
	Thresholds         []domain.ThresholdTable
	RiskFactors        []domain.RiskFactor
	ExclusionGroupMeta []ExclusionGroupMeta
	Evidence           []domain.EvidenceEntry
	Admin              []domain.SubstanceAdminMeta
	Registry           []domain.Substance
}

type thresholdDoc struct {
	Version   string                  `json:"version"`
	Guideline string                  `json:"guideline"`
	Tables    []domain.ThresholdTable `json:"tables"`
}

type riskFactorDoc struct {
	Version         string               `json:"version"`
	Guideline       string               `json:"guideline"`
	ExclusionGroups []ExclusionGroupMeta `json:"exclusion_groups"`
	RiskFactors     []domain.RiskFactor  `json:"risk_factors"`
}

type evidenceDoc struct {
	Version   string                 `json:"version"`
	Guideline string                 `json:"guideline"`
	Entries   []domain.EvidenceEntry `json:"entries"`
}

type adminDoc struct {
	Version   string                      `json:"version"`
	Guideline string                      `json:"guideline"`
	Entries   []domain.SubstanceAdminMeta `json:"entries"`
}

type registryDoc struct {
	Version    string             `json:"version"`
	Guideline  string             `json:"guideline"`
	Substances []domain.Substance `json:"substances"`
}

// Load reads the five reference datasets. When dir is non-empty, a file
// present there takes precedence over the embedded copy of the same name.
func Load(dir string, logger *logrus.Logger) (*Bundle, error) {
	var thresholds thresholdDoc
	if err := readDataset(dir, FileThresholds, &thresholds); err != nil {
		return nil, fmt.Errorf("failed to load threshold tables: %w", err)
	}

	var factors riskFactorDoc
	if err := readDataset(dir, FileRiskFactors, &factors); err != nil {
		return nil, fmt.Errorf("failed to load risk-factor catalog: %w", err)
	}

	var evidence evidenceDoc
	if err := readDataset(dir, FileEvidence, &evidence); err != nil {
		return nil, fmt.Errorf("failed to load evidence table: %w", err)
	}

	var admin adminDoc
	if err := readDataset(dir, FileAdministration, &admin); err != nil {
		return nil, fmt.Errorf("failed to load administration metadata: %w", err)
	}

	var registry registryDoc
	if err := readDataset(dir, FileRegistry, &registry); err != nil {
		return nil, fmt.Errorf("failed to load substance registry: %w", err)
	}

	bundle := &Bundle{
		Version:            thresholds.Version,
		Guideline:          thresholds.Guideline,
		Thresholds:         thresholds.Tables,
		RiskFactors:        factors.RiskFactors,
		ExclusionGroupMeta: factors.ExclusionGroups,
		Evidence:           evidence.Entries,
		Admin:              admin.Entries,
		Registry:           registry.Substances,
	}

	logger.WithFields(logrus.Fields{
		"dataset_version":  bundle.Version,
		"threshold_tables": len(bundle.Thresholds),
		"risk_factors":     len(bundle.RiskFactors),
		"substances":       len(bundle.Registry),
		"override_dir":     dir,
	}).Info("Loaded reference datasets")

	return bundle, nil
}

// readDataset unmarshals one dataset file, preferring a directory override.
func readDataset(dir, name string, out interface{}) error {
	var (
		raw []byte
		err error
	)

	if dir != "" {
		override := filepath.Join(dir, name)
		raw, err = os.ReadFile(override)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading %s: %w", override, err)
		}
	}

	if raw == nil {
		raw, err = embedded.ReadFile("data/" + name)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", name, err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
