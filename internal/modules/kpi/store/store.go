package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pulsohq/pulso-kpi-be/internal/modules/kpi/models"
)

// Config controls the store's persistence behavior.
type Config struct {
	// Persist toggles JSON snapshot persistence to Path.
	Persist bool
	// Path is the snapshot file location.
	Path string
}

// Store is the in-memory catalog: every collection plus the sample records,
// guarded by one mutex. Consumers never see the live dataset — Snapshot
// hands out deep copies, which is what makes concurrent resolution against
// one snapshot safe while mutations continue.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	data    *models.Dataset
	seq     map[string]int64
	history *history
	log     zerolog.Logger
}

// New builds a store, loading the persisted snapshot when persistence is on
// and the file exists, seeding otherwise.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	s := &Store{
		cfg:     cfg,
		history: newHistory(maxHistoryDepth),
		log:     log,
	}
	if cfg.Persist && cfg.Path != "" {
		if err := s.loadFromFile(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			s.log.Info().Str("path", cfg.Path).Msg("no snapshot file, seeding dataset")
		}
	}
	if s.data == nil {
		s.data = SeedDataset(time.Now().UTC())
	}
	s.seq = computeSequences(s.data)
	return s, nil
}

// Snapshot returns a deep copy of the full dataset, stamped with a fresh
// snapshot id and generation time.
func (s *Store) Snapshot() *models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := deepCopy(s.data)
	now := time.Now().UTC()
	snap.GeneratedAt = &now
	snap.SnapshotID = uuid.NewString()
	return snap
}

// ReplaceAll swaps the entire dataset, recomputing id sequences.
func (s *Store) ReplaceAll(data *models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = deepCopy(data)
	s.seq = computeSequences(s.data)
	s.persistLocked()
}

// Reset restores the seed dataset and drops the undo history.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = SeedDataset(time.Now().UTC())
	s.seq = computeSequences(s.data)
	s.history.clear()
	s.persistLocked()
}

// Save flushes the dataset to the snapshot file regardless of the persist
// flag. Used by the autosave job and at shutdown.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeFile()
}

// Persisting reports whether the store writes snapshots to disk.
func (s *Store) Persisting() bool {
	return s.cfg.Persist && s.cfg.Path != ""
}

func (s *Store) loadFromFile() error {
	raw, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return err
	}
	data := models.NewDataset()
	if err := json.Unmarshal(raw, data); err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *Store) writeFile() error {
	if s.cfg.Path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.cfg.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cfg.Path)
}

// persistLocked flushes to disk when persistence is on. Failures are logged,
// not propagated: a full disk must not fail a catalog write that already
// happened in memory.
func (s *Store) persistLocked() {
	if !s.Persisting() {
		return
	}
	if err := s.writeFile(); err != nil {
		s.log.Warn().Err(err).Str("path", s.cfg.Path).Msg("could not persist dataset snapshot")
	}
}

func deepCopy(d *models.Dataset) *models.Dataset {
	raw, err := json.Marshal(d)
	if err != nil {
		return models.NewDataset()
	}
	out := models.NewDataset()
	if err := json.Unmarshal(raw, out); err != nil {
		return models.NewDataset()
	}
	return out
}

// computeSequences derives the next id per collection from the highest id
// present, so loaded and replaced datasets keep allocating past their
// existing records.
func computeSequences(d *models.Dataset) map[string]int64 {
	seq := map[string]int64{}
	maxID := func(collection string, ids ...int64) {
		next := int64(1)
		for _, id := range ids {
			if id >= next {
				next = id + 1
			}
		}
		seq[collection] = next
	}
	maxID(models.CollectionSources, idsOf(d.Sources, func(v models.Source) int64 { return v.ID })...)
	maxID(models.CollectionSourceFields, idsOf(d.SourceFields, func(v models.SourceField) int64 { return v.ID })...)
	maxID(models.CollectionMetrics, idsOf(d.Metrics, func(v models.Metric) int64 { return v.ID })...)
	maxID(models.CollectionMetricFilters, idsOf(d.MetricFilters, func(v models.MetricFilter) int64 { return v.ID })...)
	maxID(models.CollectionMetricDimensions, idsOf(d.MetricDimensions, func(v models.MetricDimension) int64 { return v.ID })...)
	maxID(models.CollectionDefinitions, idsOf(d.Definitions, func(v models.Definition) int64 { return v.ID })...)
	maxID(models.CollectionDefinitionMetrics, idsOf(d.DefinitionMetrics, func(v models.DefinitionMetric) int64 { return v.ID })...)
	maxID(models.CollectionDashboards, idsOf(d.Dashboards, func(v models.Dashboard) int64 { return v.ID })...)
	maxID(models.CollectionWidgets, idsOf(d.Widgets, func(v models.Widget) int64 { return v.ID })...)
	maxID(models.CollectionWidgetFilters, idsOf(d.WidgetFilters, func(v models.WidgetFilter) int64 { return v.ID })...)
	return seq
}

func idsOf[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func (s *Store) nextID(collection string) int64 {
	id := s.seq[collection]
	if id == 0 {
		id = 1
	}
	s.seq[collection] = id + 1
	return id
}

// int64PtrEqual compares two optional ids; two nils are equal.
func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// matchesScope applies the empresa/template listing rule: with no empresa
// constraint everything matches; otherwise records of that empresa match,
// and template records (no empresa) match when IncludeTemplates is set.
func matchesScope(empresaID *int64, p models.ListParams) bool {
	if p.EmpresaID == nil {
		return true
	}
	if empresaID != nil && *empresaID == *p.EmpresaID {
		return true
	}
	return empresaID == nil && p.IncludeTemplates
}
