package store

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lysyi3m/news-comb/app/document"
)

const (
	docOverheadBytes = 512

	FootprintWarningBytes  = 50 << 20
	FootprintCriticalBytes = 100 << 20

	MaintenanceWarningAge  = 6 * time.Hour
	MaintenanceCriticalAge = 24 * time.Hour

	CategoryImbalanceShare = 0.7
	CategoryImbalanceMin   = 10

	OverdueMedium = 1
	OverdueHigh   = 50
	CountMedium   = 1000
	CountHigh     = 5000
)

// EvictExpired removes documents discovered before now minus the retention
// window and returns their IDs.
func (s *Store) EvictExpired(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictExpired(now)
}

func (s *Store) evictExpired(now time.Time) []string {
	cutoff := now.Add(-s.retention)
	var removed []string
	for id, doc := range s.docs {
		if doc.Metadata.DiscoveryTimestamp.Before(cutoff) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		s.remove(id)
	}
	sort.Strings(removed)
	return removed
}

// RemoveDuplicates drops the older-published document of every pair whose
// title word overlap reaches the threshold.
func (s *Store) RemoveDuplicates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeDuplicates()
}

func (s *Store) removeDuplicates() []string {
	type entry struct {
		doc   *document.Enriched
		words map[string]struct{}
	}

	entries := make([]entry, 0, len(s.docs))
	for _, doc := range s.docs {
		entries = append(entries, entry{doc: doc, words: document.WordSet(doc.Title)})
	}
	// Newest first, so every kept document is newer than any later duplicate.
	sort.Slice(entries, func(i, j int) bool {
		return newer(entries[i].doc, entries[j].doc)
	})

	var removed []string
	kept := make([]entry, 0, len(entries))
	for _, e := range entries {
		duplicate := false
		for _, k := range kept {
			if Overlap(k.words, e.words) >= s.threshold {
				duplicate = true
				slog.Debug("Duplicate document removed", "id", e.doc.ID, "kept", k.doc.ID, "title", e.doc.Title)
				break
			}
		}
		if duplicate {
			removed = append(removed, e.doc.ID)
			continue
		}
		kept = append(kept, e)
	}

	for _, id := range removed {
		s.remove(id)
	}
	return removed
}

// newer orders by publish date, then by discovery time, then by ID.
func newer(a, b *document.Enriched) bool {
	if !a.PublishDate.Equal(b.PublishDate) {
		return a.PublishDate.After(b.PublishDate)
	}
	if !a.Metadata.DiscoveryTimestamp.Equal(b.Metadata.DiscoveryTimestamp) {
		return a.Metadata.DiscoveryTimestamp.Before(b.Metadata.DiscoveryTimestamp)
	}
	return a.ID < b.ID
}

// Overlap is |A∩B| / max(|A|, |B|).
func Overlap(a, b map[string]struct{}) float64 {
	larger := max(len(a), len(b))
	if larger == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(larger)
}

// RebuildIndex reconstructs the category index from the primary map.
func (s *Store) RebuildIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildIndex()
}

func (s *Store) rebuildIndex() {
	s.byCategory = make(map[document.Category]map[string]struct{})
	for id, doc := range s.docs {
		s.index(id, doc.Category)
	}
}

// Maintain runs retention, deduplication and an index rebuild.
func (s *Store) Maintain(now time.Time) MaintenanceReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := s.evictExpired(now)
	duplicates := s.removeDuplicates()
	s.rebuildIndex()
	s.lastMaintenance = now

	report := MaintenanceReport{
		Expired:    len(expired),
		Duplicates: len(duplicates),
		Remaining:  len(s.docs),
		At:         now,
	}

	slog.Info("Store maintenance completed", "expired", report.Expired, "duplicates", report.Duplicates, "remaining", report.Remaining)
	return report
}

// AutoMaintain runs Maintain only when the needed priority is medium or above.
func (s *Store) AutoMaintain(now time.Time) (*MaintenanceReport, bool) {
	need := s.NeededMaintenance(now)
	if need.Priority.rank() < PriorityMedium.rank() {
		slog.Debug("Store maintenance not needed", "priority", need.Priority)
		return nil, false
	}
	report := s.Maintain(now)
	return &report, true
}

func (s *Store) NeededMaintenance(now time.Time) MaintenanceNeed {
	s.mu.RLock()
	defer s.mu.RUnlock()

	need := MaintenanceNeed{Priority: PriorityLow}
	raise := func(p Priority, reason string) {
		if p.rank() > need.Priority.rank() {
			need.Priority = p
		}
		need.Reasons = append(need.Reasons, reason)
	}

	cutoff := now.Add(-s.retention)
	for _, doc := range s.docs {
		if doc.Metadata.DiscoveryTimestamp.Before(cutoff) {
			need.Overdue++
		}
	}
	switch {
	case need.Overdue >= OverdueHigh:
		raise(PriorityHigh, fmt.Sprintf("%d documents past retention", need.Overdue))
	case need.Overdue >= OverdueMedium:
		raise(PriorityMedium, fmt.Sprintf("%d documents past retention", need.Overdue))
	}

	footprint := s.estimateBytes()
	switch {
	case footprint >= FootprintCriticalBytes:
		raise(PriorityHigh, fmt.Sprintf("estimated footprint %d bytes", footprint))
	case footprint >= FootprintWarningBytes:
		raise(PriorityMedium, fmt.Sprintf("estimated footprint %d bytes", footprint))
	}

	switch total := len(s.docs); {
	case total >= CountHigh:
		raise(PriorityHigh, fmt.Sprintf("%d documents stored", total))
	case total >= CountMedium:
		raise(PriorityMedium, fmt.Sprintf("%d documents stored", total))
	}

	return need
}

func (s *Store) Health(now time.Time) HealthReport {
	stats := s.Stats()

	report := HealthReport{Status: HealthHealthy, Stats: stats, Issues: []string{}, Recommendations: []string{}}
	escalate := func(status HealthStatus, issue, recommendation string) {
		if status == HealthCritical || report.Status == HealthHealthy {
			report.Status = status
		}
		report.Issues = append(report.Issues, issue)
		report.Recommendations = append(report.Recommendations, recommendation)
	}

	switch {
	case stats.EstimatedBytes >= FootprintCriticalBytes:
		escalate(HealthCritical, "memory footprint is critical", "run full maintenance and lower the retention window")
	case stats.EstimatedBytes >= FootprintWarningBytes:
		escalate(HealthWarning, "memory footprint is high", "run maintenance to evict expired documents")
	}

	if stats.Total >= CategoryImbalanceMin {
		for category, count := range stats.ByCategory {
			if float64(count)/float64(stats.Total) > CategoryImbalanceShare {
				escalate(HealthWarning, fmt.Sprintf("category %s holds %d of %d documents", category, count, stats.Total), "review site configuration for category coverage")
				break
			}
		}
	}

	switch {
	case stats.LastMaintenance == nil && stats.Total > 0:
		escalate(HealthWarning, "maintenance has never run", "run maintenance")
	case stats.LastMaintenance != nil && now.Sub(*stats.LastMaintenance) > MaintenanceCriticalAge:
		escalate(HealthCritical, "maintenance overdue by more than a day", "check the maintenance scheduler")
	case stats.LastMaintenance != nil && now.Sub(*stats.LastMaintenance) > MaintenanceWarningAge:
		escalate(HealthWarning, "maintenance has not run recently", "run maintenance")
	}

	return report
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Total:          len(s.docs),
		ByCategory:     make(map[document.Category]int),
		EstimatedBytes: s.estimateBytes(),
	}
	for c, ids := range s.byCategory {
		if len(ids) > 0 {
			stats.ByCategory[c] = len(ids)
		}
	}
	for _, doc := range s.docs {
		published := doc.PublishDate
		if stats.Oldest == nil || published.Before(*stats.Oldest) {
			stats.Oldest = &published
		}
		if stats.Newest == nil || published.After(*stats.Newest) {
			stats.Newest = &published
		}
	}
	if !s.lastMaintenance.IsZero() {
		last := s.lastMaintenance
		stats.LastMaintenance = &last
	}
	return stats
}

func (s *Store) estimateBytes() int64 {
	var total int64
	for _, doc := range s.docs {
		total += docOverheadBytes
		total += int64(len(doc.ID) + len(doc.Title) + len(doc.Body) + len(doc.Summary) + len(doc.Author) + len(doc.URL))
		for _, u := range doc.ImageURLs {
			total += int64(len(u))
		}
		for _, tag := range doc.Tags {
			total += int64(len(tag))
		}
	}
	return total
}
