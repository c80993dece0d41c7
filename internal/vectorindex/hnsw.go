package vectorindex

import (
	"bufio"
	"context"
	"math"
	"os"
	"sync"

	"github.com/coder/hnsw"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// HNSWIndex is a pure-Go, in-memory VectorIndex backed by coder/hnsw.
// It is the default index for new workspaces: no CGO, no external
// extension to load.
type HNSWIndex struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[uint64]
	dimension int
	metric    string

	idMap   map[DocumentID]uint64
	keyMap  map[uint64]DocumentID
	metaMap map[DocumentID]map[string]string
	nextKey uint64
}

// HNSWConfig configures a new HNSWIndex.
type HNSWConfig struct {
	Dimension int
	Metric    string // "cos" or "l2"; defaults to "cos"
	M         int    // max neighbors per node; coder/hnsw default recommendation is 16
	EfSearch  int    // search-time candidate list size
}

// NewHNSWIndex builds an empty in-memory HNSW index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		cfg.Metric = "cos"
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:     graph,
		dimension: cfg.Dimension,
		metric:    cfg.Metric,
		idMap:     make(map[DocumentID]uint64),
		keyMap:    make(map[uint64]DocumentID),
		metaMap:   make(map[DocumentID]map[string]string),
	}
}

func (idx *HNSWIndex) Insert(ctx context.Context, id DocumentID, vec Vector, metadata map[string]string) error {
	return idx.InsertBatch(ctx, map[DocumentID]Entry{id: {Vector: vec, Metadata: metadata}})
}

func (idx *HNSWIndex) InsertBatch(ctx context.Context, items map[DocumentID]Entry) error {
	if len(items) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, entry := range items {
		if err := validateDimension(len(entry.Vector), idx.dimension); err != nil {
			return err
		}
	}

	for id, entry := range items {
		// An existing ID is lazily orphaned rather than deleted from the
		// graph: coder/hnsw's Delete corrupts the graph when the removed
		// node was the last one added.
		if existingKey, exists := idx.idMap[id]; exists {
			delete(idx.keyMap, existingKey)
			delete(idx.idMap, id)
		}

		key := idx.nextKey
		idx.nextKey++

		normalized := make([]float32, len(entry.Vector))
		copy(normalized, entry.Vector)
		if idx.metric == "cos" {
			normalizeInPlace(normalized)
		}

		idx.graph.Add(hnsw.MakeNode(key, normalized))
		idx.idMap[id] = key
		idx.keyMap[key] = id
		if entry.Metadata != nil {
			idx.metaMap[id] = entry.Metadata
		} else {
			delete(idx.metaMap, id)
		}
	}
	return nil
}

func (idx *HNSWIndex) Search(ctx context.Context, query Vector, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := validateDimension(len(query), idx.dimension); err != nil {
		return nil, err
	}
	if idx.graph.Len() == 0 {
		return nil, nil
	}
	if k <= 0 {
		return nil, cerrors.InvalidInput("vectorindex: k must be positive")
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if idx.metric == "cos" {
		normalizeInPlace(normalized)
	}

	nodes := idx.graph.Search(normalized, k)
	results := make([]SearchResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := idx.keyMap[node.Key]
		if !ok {
			continue // orphaned node from a lazy delete or overwrite
		}
		distance := idx.graph.Distance(normalized, node.Value)
		results = append(results, SearchResult{
			ID:       id,
			Distance: distance,
			Score:    distanceToScore(distance, idx.metric),
			Metadata: idx.metaMap[id],
		})
	}
	return results, nil
}

// SearchWithFilter behaves like Search, but only returns hits matching
// filter. Because the underlying ANN search returns only its top-k
// unfiltered neighbors, a set filter or score floor overfetches before
// trimming back down to k.
func (idx *HNSWIndex) SearchWithFilter(ctx context.Context, query Vector, k int, filter SearchFilter) ([]SearchResult, error) {
	if len(filter.MetadataFilters) == 0 && filter.MinScore == nil {
		return idx.Search(ctx, query, k)
	}
	if k <= 0 {
		return nil, cerrors.InvalidInput("vectorindex: k must be positive")
	}

	candidates, err := idx.Search(ctx, query, k*searchOverfetchFactor)
	if err != nil {
		return nil, err
	}
	return applyFilter(candidates, filter, k), nil
}

func (idx *HNSWIndex) Remove(ctx context.Context, id DocumentID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if key, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, key)
		delete(idx.idMap, id)
	}
	delete(idx.metaMap, id)
	return nil
}

func (idx *HNSWIndex) Len(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idMap), nil
}

func (idx *HNSWIndex) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph = hnsw.NewGraph[uint64]()
	idx.graph.Distance = distanceFuncFor(idx.metric)
	idx.idMap = make(map[DocumentID]uint64)
	idx.keyMap = make(map[uint64]DocumentID)
	idx.metaMap = make(map[DocumentID]map[string]string)
	idx.nextKey = 0
	return nil
}

func (idx *HNSWIndex) Stats(ctx context.Context) (IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return IndexStats{
		Count:     len(idx.idMap),
		Dimension: idx.dimension,
		Metric:    idx.metric,
	}, nil
}

// Save persists the graph and its ID mappings to disk, atomically.
func (idx *HNSWIndex) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: create index snapshot", err)
	}
	if err := idx.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: export hnsw graph", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: close index snapshot", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: finalize index snapshot", err)
	}
	return nil
}

// Load replaces the in-memory graph with a previously saved snapshot.
// It does not restore ID mappings or metadata: after Load, idMap, keyMap
// and metaMap hold whatever they held before, and no code in this
// package persists them.
func (idx *HNSWIndex) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: open index snapshot", err)
	}
	defer file.Close()

	if err := idx.graph.Import(bufio.NewReader(file)); err != nil {
		return cerrors.Wrap(cerrors.KindStorage, "vectorindex: import hnsw graph", err)
	}
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)

func distanceFuncFor(metric string) func(a, b []float32) float32 {
	if metric == "l2" {
		return hnsw.EuclideanDistance
	}
	return hnsw.CosineDistance
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore maps a raw distance to a [0,1]-ish similarity score.
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
