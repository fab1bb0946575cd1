package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/document"
)

const (
	DefaultRetention          = 24 * time.Hour
	DefaultDuplicateThreshold = 0.8
)

// Store keeps enriched documents in memory with a category index. The
// primary map and the index are always updated under the same lock.
type Store struct {
	docs            map[string]*document.Enriched
	byCategory      map[document.Category]map[string]struct{}
	retention       time.Duration
	threshold       float64
	lastMaintenance time.Time
	mu              sync.RWMutex
}

func New(opts Options) *Store {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.DuplicateThreshold <= 0 {
		opts.DuplicateThreshold = DefaultDuplicateThreshold
	}
	return &Store{
		docs:       make(map[string]*document.Enriched),
		byCategory: make(map[document.Category]map[string]struct{}),
		retention:  opts.Retention,
		threshold:  opts.DuplicateThreshold,
	}
}

func (s *Store) Put(doc document.Enriched) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.docs[doc.ID]; ok && old.Category != doc.Category {
		s.unindex(old.ID, old.Category)
	}

	stored := doc
	s.docs[doc.ID] = &stored
	s.index(doc.ID, doc.Category)
}

func (s *Store) PutAll(docs []document.Enriched) {
	for _, doc := range docs {
		s.Put(doc)
	}
}

func (s *Store) Get(id string) (*document.Enriched, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	copied := *doc
	return &copied, true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ByCategory returns documents of one category, newest publish date first.
// A non-positive limit returns all of them.
func (s *Store) ByCategory(category document.Category, limit int) []document.Enriched {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCategory[category]
	docs := make([]document.Enriched, 0, len(ids))
	for id := range ids {
		docs = append(docs, *s.docs[id])
	}
	return newestFirst(docs, limit)
}

// Search matches the query case-insensitively against title, body and tags.
func (s *Store) Search(query string, limit int) []document.Enriched {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []document.Enriched
	for _, doc := range s.docs {
		if matches(doc, query) {
			docs = append(docs, *doc)
		}
	}
	return newestFirst(docs, limit)
}

func (s *Store) All(limit int) []document.Enriched {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]document.Enriched, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, *doc)
	}
	return newestFirst(docs, limit)
}

// Categories returns the number of documents per category.
func (s *Store) Categories() map[document.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[document.Category]int, len(s.byCategory))
	for c, ids := range s.byCategory {
		if len(ids) > 0 {
			counts[c] = len(ids)
		}
	}
	return counts
}

func (s *Store) index(id string, category document.Category) {
	ids, ok := s.byCategory[category]
	if !ok {
		ids = make(map[string]struct{})
		s.byCategory[category] = ids
	}
	ids[id] = struct{}{}
}

func (s *Store) unindex(id string, category document.Category) {
	if ids, ok := s.byCategory[category]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byCategory, category)
		}
	}
}

func (s *Store) remove(id string) bool {
	doc, ok := s.docs[id]
	if !ok {
		return false
	}
	delete(s.docs, id)
	s.unindex(id, doc.Category)
	return true
}

func matches(doc *document.Enriched, query string) bool {
	if strings.Contains(strings.ToLower(doc.Title), query) || strings.Contains(strings.ToLower(doc.Body), query) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func newestFirst(docs []document.Enriched, limit int) []document.Enriched {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].PublishDate.Equal(docs[j].PublishDate) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].PublishDate.After(docs[j].PublishDate)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
