package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const monthLayout = "2006-01"

// MonthlyStats holds the analysis counters of one month.
type MonthlyStats struct {
	CacheHits         int       `json:"cache_hits"`
	CacheMisses       int       `json:"cache_misses"`
	PerformanceOK     int       `json:"performance_ok"`
	PerformanceFailed int       `json:"performance_failed"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Storage persists monthly counters to a JSON file in the data directory.
type Storage struct {
	mutex       sync.RWMutex
	writeMu     sync.Mutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// NewStorage creates the data directory if needed, loads existing counters and
// starts the background writer.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// Flush writes the counters to disk, replacing the file atomically. Calls are
// serialized since they share one temporary file.
func (s *Storage) Flush() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func (s *Storage) backgroundWriter() {
	defer close(s.stopped)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.flushLogged()
		case <-ticker.C:
			s.flushLogged()
		case <-s.done:
			s.flushLogged()
			return
		}
	}
}

func (s *Storage) flushLogged() {
	if err := s.Flush(); err != nil {
		slog.Warn("failed to persist statistics", "path", s.filePath, "error", err)
	}
}

// Close stops the background writer after a final write.
func (s *Storage) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

func (s *Storage) currentMonth() string {
	return s.now().Format(monthLayout)
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

// IncrementStats adds to the counters of the current month.
func (s *Storage) IncrementStats(cacheHits, cacheMisses, perfOK, perfFailed int) {
	month := s.currentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}

	stats.CacheHits += cacheHits
	stats.CacheMisses += cacheMisses
	stats.PerformanceOK += perfOK
	stats.PerformanceFailed += perfFailed
	stats.LastUpdated = s.now()

	if s.now().Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	month := s.currentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[month]; exists {
		return *stats
	}
	return MonthlyStats{}
}

// Cleanup drops every month older than the current one and the
// retainMonths-1 months before it. retainMonths below 1 keeps the current
// month only.
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}
	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	keep := make(map[string]bool, retainMonths)
	for i := 0; i < retainMonths; i++ {
		keep[first.AddDate(0, -i, 0).Format(monthLayout)] = true
	}

	s.mutex.Lock()
	removed := 0
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
			removed++
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	slog.Info("statistics cleanup", "retainMonths", retainMonths, "removed", removed)
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns all months with statistics, newest first.
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}
