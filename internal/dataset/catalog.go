package dataset

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

// tableKey identifies a threshold table by sex and percentage tier.
type tableKey struct {
	Sex  domain.Sex
	Tier domain.Tier
}

// cellKey identifies one threshold cell within a table.
type cellKey struct {
	AgeBin  int
	Density string
}

// compiledTable is a threshold table indexed for O(1) cell lookup.
// Only numeric cells are stored: a cell that is missing from the source
// table and a cell with an empty multiplier mean the same thing (the
// baseline risk alone crosses the tier).
type compiledTable struct {
	cells map[cellKey]float64
	bins  []float64 // density bins sorted best (least negative) to worst
}

// Catalog is the immutable compiled view of every reference dataset.
// It is built once at startup and passed by reference to all consumers;
// nothing in it changes after Compile returns.
type Catalog struct {
	version   string
	guideline string

	tables map[tableKey]*compiledTable

	factorsByID map[string]*domain.RiskFactor
	factorOrder []string

	megByID     map[string]*domain.MutualExclusionGroup
	megOfFactor map[string]string

	substancesByID map[string]*domain.Substance
	substanceOrder []string
	evidenceByID   map[string]*domain.EvidenceEntry
	adminByID      map[string]*domain.SubstanceAdminMeta
}

// Compile builds the catalog from a loaded bundle. It validates every
// record and enforces cross-dataset consistency: the registry is the
// authoritative source for substance id, label and therapy class, and the
// evidence and administration tables may only reference registry ids.
func Compile(b *Bundle) (*Catalog, error) {
	c := &Catalog{
		version:        b.Version,
		guideline:      b.Guideline,
		tables:         make(map[tableKey]*compiledTable, len(b.Thresholds)),
		factorsByID:    make(map[string]*domain.RiskFactor, len(b.RiskFactors)),
		megByID:        make(map[string]*domain.MutualExclusionGroup),
		megOfFactor:    make(map[string]string),
		substancesByID: make(map[string]*domain.Substance, len(b.Registry)),
		evidenceByID:   make(map[string]*domain.EvidenceEntry, len(b.Evidence)),
		adminByID:      make(map[string]*domain.SubstanceAdminMeta, len(b.Admin)),
	}

	if err := c.compileTables(b.Thresholds); err != nil {
		return nil, err
	}
	if err := c.compileRiskFactors(b.RiskFactors, b.ExclusionGroupMeta); err != nil {
		return nil, err
	}
	if err := c.compileSubstances(b.Registry, b.Evidence, b.Admin); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) compileTables(tables []domain.ThresholdTable) error {
	for i := range tables {
		t := &tables[i]
		if !t.Sex.IsValid() {
			return fmt.Errorf("threshold table %d: %w", i, domain.ErrInvalidSex)
		}
		if !t.Tier.IsValid() {
			return fmt.Errorf("threshold table %d: %w", i, domain.ErrInvalidTier)
		}

		key := tableKey{Sex: t.Sex, Tier: t.Tier}
		if _, dup := c.tables[key]; dup {
			return fmt.Errorf("duplicate threshold table for %s/%d%%", t.Sex, t.Tier)
		}

		ct := &compiledTable{cells: make(map[cellKey]float64, len(t.Entries))}
		binSeen := make(map[float64]bool)
		for _, e := range t.Entries {
			if e.Density != domain.NoBMDKey {
				bin, err := strconv.ParseFloat(e.Density, 64)
				if err != nil {
					return fmt.Errorf("threshold table %s/%d%%: bad density key %q: %w", t.Sex, t.Tier, e.Density, err)
				}
				if !binSeen[bin] {
					binSeen[bin] = true
					ct.bins = append(ct.bins, bin)
				}
			}
			if e.RequiredMultiplier != nil {
				ct.cells[cellKey{AgeBin: e.AgeBin, Density: e.Density}] = *e.RequiredMultiplier
			}
		}
		// Best (least negative) bin first.
		sort.Sort(sort.Reverse(sort.Float64Slice(ct.bins)))

		c.tables[key] = ct
	}
	return nil
}

func (c *Catalog) compileRiskFactors(factors []domain.RiskFactor, meta []ExclusionGroupMeta) error {
	for _, m := range meta {
		if m.ID == "" {
			return fmt.Errorf("exclusion group metadata without id")
		}
		mode := m.Mode
		if mode == "" {
			mode = domain.SINGLE_CHOICE_OPTIONAL
		}
		c.megByID[m.ID] = &domain.MutualExclusionGroup{ID: m.ID, Label: m.Label, Mode: mode}
	}

	for i := range factors {
		rf := factors[i]
		if err := rf.Validate(); err != nil {
			return err
		}
		if _, dup := c.factorsByID[rf.ID]; dup {
			return fmt.Errorf("duplicate risk factor id %s", rf.ID)
		}
		c.factorsByID[rf.ID] = &rf
		c.factorOrder = append(c.factorOrder, rf.ID)

		if rf.ExclusionGroup == "" {
			continue
		}
		// Groups not declared in catalog metadata are synthesized from the
		// member's own group reference, defaulting to single-choice mode.
		meg, ok := c.megByID[rf.ExclusionGroup]
		if !ok {
			mode := rf.ExclusionMode
			if mode == "" {
				mode = domain.SINGLE_CHOICE_OPTIONAL
			}
			meg = &domain.MutualExclusionGroup{ID: rf.ExclusionGroup, Mode: mode}
			c.megByID[rf.ExclusionGroup] = meg
		}
		meg.MemberIDs = append(meg.MemberIDs, rf.ID)
		c.megOfFactor[rf.ID] = meg.ID
	}

	return nil
}

func (c *Catalog) compileSubstances(registry []domain.Substance, evidence []domain.EvidenceEntry, admin []domain.SubstanceAdminMeta) error {
	for i := range registry {
		s := registry[i]
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := c.substancesByID[s.ID]; dup {
			return fmt.Errorf("duplicate substance id %s", s.ID)
		}
		c.substancesByID[s.ID] = &s
		c.substanceOrder = append(c.substanceOrder, s.ID)
	}

	for i := range evidence {
		e := evidence[i]
		if _, ok := c.substancesByID[e.SubstanceID]; !ok {
			return fmt.Errorf("evidence table: %w: %s", domain.ErrUnknownSubstance, e.SubstanceID)
		}
		if e.Level != nil && !e.Level.IsValid() {
			return fmt.Errorf("evidence table: invalid evidence level %q for %s", *e.Level, e.SubstanceID)
		}
		c.evidenceByID[e.SubstanceID] = &e
	}

	for i := range admin {
		a := admin[i]
		if _, ok := c.substancesByID[a.SubstanceID]; !ok {
			return fmt.Errorf("administration metadata: %w: %s", domain.ErrUnknownSubstance, a.SubstanceID)
		}
		c.adminByID[a.SubstanceID] = &a
	}

	return nil
}

// Version returns the dataset bundle version.
func (c *Catalog) Version() string { return c.version }

// Guideline returns the guideline identifier the datasets were curated from.
func (c *Catalog) Guideline() string { return c.guideline }

// RequiredMultiplier returns the numeric threshold cell for the given table
// coordinates, or nil when the cell is absent. An absent cell always means
// the tier is reached without any risk factor, never that it is
// unreachable.
func (c *Catalog) RequiredMultiplier(sex domain.Sex, tier domain.Tier, ageBin int, densityKey string) (*float64, error) {
	t, ok := c.tables[tableKey{Sex: sex, Tier: tier}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d%%", domain.ErrTableNotFound, sex, tier)
	}
	if v, ok := t.cells[cellKey{AgeBin: ageBin, Density: densityKey}]; ok {
		value := v
		return &value, nil
	}
	return nil, nil
}

// DensityBins returns the table's available bone-density bins sorted from
// best (least negative) to worst. The slice is a copy.
func (c *Catalog) DensityBins(sex domain.Sex, tier domain.Tier) ([]float64, error) {
	t, ok := c.tables[tableKey{Sex: sex, Tier: tier}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d%%", domain.ErrTableNotFound, sex, tier)
	}
	bins := make([]float64, len(t.bins))
	copy(bins, t.bins)
	return bins, nil
}

// RiskFactor returns the catalog entry for the given factor id.
func (c *Catalog) RiskFactor(id string) (*domain.RiskFactor, bool) {
	rf, ok := c.factorsByID[id]
	return rf, ok
}

// RiskFactors returns all risk factors in catalog order.
func (c *Catalog) RiskFactors() []domain.RiskFactor {
	out := make([]domain.RiskFactor, 0, len(c.factorOrder))
	for _, id := range c.factorOrder {
		out = append(out, *c.factorsByID[id])
	}
	return out
}

// ExclusionGroup returns the mutual-exclusion group with the given id.
func (c *Catalog) ExclusionGroup(id string) (*domain.MutualExclusionGroup, bool) {
	meg, ok := c.megByID[id]
	return meg, ok
}

// ExclusionGroupOf returns the id of the group owning the given factor, if
// any. A risk factor belongs to at most one group.
func (c *Catalog) ExclusionGroupOf(factorID string) (string, bool) {
	id, ok := c.megOfFactor[factorID]
	return id, ok
}

// Substance returns the registry entry for the given substance id.
func (c *Catalog) Substance(id string) (*domain.Substance, bool) {
	s, ok := c.substancesByID[id]
	return s, ok
}

// Substances returns all registry entries in registry order.
func (c *Catalog) Substances() []domain.Substance {
	out := make([]domain.Substance, 0, len(c.substanceOrder))
	for _, id := range c.substanceOrder {
		out = append(out, *c.substancesByID[id])
	}
	return out
}

// ActiveSubstancesOfClass returns the active registry substances of the
// given therapy class, in registry order.
func (c *Catalog) ActiveSubstancesOfClass(class domain.TherapyClass) []domain.Substance {
	var out []domain.Substance
	for _, id := range c.substanceOrder {
		s := c.substancesByID[id]
		if s.Active && s.Class == class {
			out = append(out, *s)
		}
	}
	return out
}

// Evidence returns the evidence entry for a substance. A missing entry is
// not an error; callers rank such substances last.
func (c *Catalog) Evidence(substanceID string) (*domain.EvidenceEntry, bool) {
	e, ok := c.evidenceByID[substanceID]
	return e, ok
}

// Administration returns the administration metadata for a substance.
func (c *Catalog) Administration(substanceID string) (*domain.SubstanceAdminMeta, bool) {
	a, ok := c.adminByID[substanceID]
	return a, ok
}
