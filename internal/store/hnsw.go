package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// HNSWIndex implements VectorIndex using the coder/hnsw pure Go HNSW
// implementation. Filterable metadata is kept alongside the graph so
// filtered searches can oversample and post-filter.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorIndexConfig

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	metas map[string]DocMeta

	closed bool
}

// hnswSnapshot stores ID mappings and metadata for persistence.
type hnswSnapshot struct {
	IDMap   map[string]uint64
	Metas   map[string]DocMeta
	NextKey uint64
	Config  VectorIndexConfig
}

// filterOversample is how many extra candidates a filtered search pulls
// from the graph before post-filtering.
const filterOversample = 4

// NewHNSWIndex creates a new HNSW-based vector index.
func NewHNSWIndex(cfg VectorIndexConfig) (*HNSWIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, wferrors.ConfigError(
			fmt.Sprintf("vector index dimensions must be positive, got %d", cfg.Dimensions), nil)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		metas:  make(map[string]DocMeta),
	}, nil
}

// Upsert inserts vectors with their IDs and metadata.
// An existing ID is replaced via lazy deletion.
func (s *HNSWIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metas []DocMeta) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) || len(ids) != len(metas) {
		return wferrors.New(wferrors.ErrCodeInvalidInput,
			fmt.Sprintf("ids, vectors, and metas length mismatch: %d vs %d vs %d",
				len(ids), len(vectors), len(metas)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return dimensionMismatch(s.config.Dimensions, len(v))
		}
	}

	for i, id := range ids {
		// Lazy deletion on replace: removing nodes from coder/hnsw can
		// break the graph when the last node goes, so orphan the old key
		// instead.
		if existingKey, exists := s.idMap[id]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		// Normalize for cosine similarity.
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
		s.metas[id] = metas[i]
	}

	return nil
}

// Search finds the k nearest neighbors matching the filters.
// Results are ordered by descending similarity, ties broken by id.
func (s *HNSWIndex) Search(ctx context.Context, query []float32, k int, filters Filters) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}
	if len(query) != s.config.Dimensions {
		return nil, dimensionMismatch(s.config.Dimensions, len(query))
	}
	if k <= 0 {
		return []*VectorResult{}, nil
	}
	if s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	normalizedQuery := make([]float32, len(query))
	copy(normalizedQuery, query)
	normalizeVectorInPlace(normalizedQuery)

	// Filtered searches oversample so post-filtering still fills k.
	fetch := k
	if !filters.Empty() {
		fetch = k * filterOversample
	}
	if total := s.graph.Len(); fetch > total {
		fetch = total
	}

	nodes := s.graph.Search(normalizedQuery, fetch)

	results := make([]*VectorResult, 0, k)
	for _, node := range nodes {
		id, exists := s.keyMap[node.Key]
		if !exists {
			// Lazy-deleted node, skip.
			continue
		}
		meta := s.metas[id]
		if !filters.Matches(meta.Country, meta.Category) {
			continue
		}

		// Cosine similarity from cosine distance.
		distance := s.graph.Distance(normalizedQuery, node.Value)
		results = append(results, &VectorResult{
			ID:    id,
			Score: 1.0 - distance,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes vectors by ID using lazy deletion.
func (s *HNSWIndex) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
			delete(s.metas, id)
		}
	}
	return nil
}

// Clear removes every vector by rebuilding the graph. Cheaper than
// lazy-deleting node by node when the whole corpus is replaced.
func (s *HNSWIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = s.config.M
	graph.EfSearch = s.config.EfSearch
	graph.Ml = 0.25

	s.graph = graph
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.metas = make(map[string]DocMeta)
	s.nextKey = 0
	return nil
}

// Count returns the number of active vectors.
func (s *HNSWIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Save persists the index to disk atomically (temp file + rename).
func (s *HNSWIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	return s.saveSnapshot(path + ".meta")
}

// saveSnapshot saves ID mappings and metadata to a gob file.
func (s *HNSWIndex) saveSnapshot(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	snap := hnswSnapshot{
		IDMap:   s.idMap,
		Metas:   s.metas,
		NextKey: s.nextKey,
		Config:  s.config,
	}

	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load loads the index from disk.
func (s *HNSWIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "vector index is closed", nil)
	}

	if err := s.loadSnapshot(path + ".meta"); err != nil {
		return fmt.Errorf("failed to load index snapshot: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to import graph: %w", err)
	}
	return nil
}

// loadSnapshot loads ID mappings and metadata from a gob file.
func (s *HNSWIndex) loadSnapshot(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var snap hnswSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.idMap = snap.IDMap
	s.metas = snap.Metas
	s.nextKey = snap.NextKey
	s.config = snap.Config
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return nil
}

// Close releases resources.
func (s *HNSWIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// Verify interface implementation
var _ VectorIndex = (*HNSWIndex)(nil)

// dimensionMismatch builds the structured dimension mismatch error.
func dimensionMismatch(expected, got int) error {
	return wferrors.New(wferrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
