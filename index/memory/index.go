package memory

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/w-h-a/calls/index"
)

type memoryIndex struct {
	options index.Options
	docs    map[string]index.Document
	mtx     sync.RWMutex
}

func (m *memoryIndex) Upsert(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if len(doc.ID) == 0 {
			return errors.New("document has no id")
		}
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	// previous entries, restored if the batch cannot be persisted
	prev := make(map[string]*index.Document, len(docs))

	for _, doc := range docs {
		if _, seen := prev[doc.ID]; !seen {
			if old, ok := m.docs[doc.ID]; ok {
				prev[doc.ID] = &old
			} else {
				prev[doc.ID] = nil
			}
		}

		cpy := make([]float32, len(doc.Vector))
		copy(cpy, doc.Vector)
		doc.Vector = cpy
		doc.Metadata = maps.Clone(doc.Metadata)

		m.docs[doc.ID] = doc
	}

	if err := m.persist(); err != nil {
		for id, old := range prev {
			if old == nil {
				delete(m.docs, id)
			} else {
				m.docs[id] = *old
			}
		}
		return err
	}

	return nil
}

func (m *memoryIndex) Query(ctx context.Context, vector []float32, k int, opts ...index.QueryOption) ([]index.Match, error) {
	if k < 1 {
		return nil, nil
	}

	options := index.NewQueryOptions(opts...)

	m.mtx.RLock()
	defer m.mtx.RUnlock()

	matches := make([]index.Match, 0, len(m.docs))

	for _, doc := range m.docs {
		if !index.MatchesFilter(doc.Metadata, options.Filter) {
			continue
		}
		matches = append(matches, index.Match{
			ID:       doc.ID,
			Text:     doc.Text,
			Metadata: maps.Clone(doc.Metadata),
			Distance: index.CosineDistance(vector, doc.Vector),
		})
	}

	index.SortMatches(matches)

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

func (m *memoryIndex) Count(ctx context.Context) (int, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return len(m.docs), nil
}

func (m *memoryIndex) path() string {
	return filepath.Join(m.options.Location, m.options.Collection+".json")
}

// persist writes the collection when a directory is configured. Caller holds
// the write lock.
func (m *memoryIndex) persist() error {
	if len(m.options.Location) == 0 {
		return nil
	}

	ids := slices.Sorted(maps.Keys(m.docs))
	docs := make([]index.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, m.docs[id])
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.options.Location, "."+m.options.Collection+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), m.path())
}

func (m *memoryIndex) load() error {
	data, err := os.ReadFile(m.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var docs []index.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return err
	}

	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}

	return nil
}

// NewIndex keeps vectors in memory. With a location directory the collection
// is loaded from and saved to <location>/<collection>.json.
func NewIndex(opts ...index.Option) index.Index {
	options := index.NewOptions(opts...)

	m := &memoryIndex{
		options: options,
		docs:    map[string]index.Document{},
		mtx:     sync.RWMutex{},
	}

	if len(options.Location) == 0 {
		return m
	}

	if err := os.MkdirAll(options.Location, 0o755); err != nil {
		detail := "failed to create memory index directory"
		slog.ErrorContext(options.Context, detail, "dir", options.Location, "error", err)
		panic(detail)
	}

	if err := m.load(); err != nil {
		detail := "failed to load memory index"
		slog.ErrorContext(options.Context, detail, "path", m.path(), "error", err)
		panic(detail)
	}

	return m
}
