package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/config"
)

// Summary is the persisted digest of one analysis report.
type Summary struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	URL            string          `gorm:"size:768;index" json:"url"`
	OverallScore   int             `json:"overallScore"`
	CategoryScores map[string]*int `gorm:"serializer:json;type:text" json:"categoryScores"` // null for skipped categories
	CreatedAt      time.Time       `gorm:"index" json:"createdAt"`
}

// TableName pins the table name.
func (Summary) TableName() string {
	return "report_summaries"
}

// Store persists and lists report summaries.
type Store interface {
	Save(ctx context.Context, s *Summary) error
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// Open returns a MySQL-backed store when a DSN is configured and the stub
// otherwise.
func Open(cfg config.ReportsConfig) (Store, error) {
	if cfg.DSN == "" {
		return NewStubStore(cfg.ListDelay), nil
	}
	store, err := OpenMySQL(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Summarize builds a Summary with a fresh id from a complete report.
func Summarize(res *analyzer.CompleteAnalysisResults) *Summary {
	scores := make(map[string]*int, len(res.Categories))
	for c, r := range res.Categories {
		if r == nil {
			scores[string(c)] = nil
			continue
		}
		score := r.Score
		scores[string(c)] = &score
	}
	return &Summary{
		ID:             uuid.New().String(),
		URL:            res.URL,
		OverallScore:   res.OverallScore,
		CategoryScores: scores,
		CreatedAt:      res.Timestamp,
	}
}

// Recorder adapts a Store to the analyzer's report hook.
type Recorder struct {
	store Store
}

// NewRecorder wraps store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record summarizes res and saves it.
func (r *Recorder) Record(ctx context.Context, res *analyzer.CompleteAnalysisResults) error {
	return r.store.Save(ctx, Summarize(res))
}
