package analyzer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Aggregator runs the category scorers and combines them into one report.
type Aggregator struct {
	scorers map[Category]Scorer
	now     func() time.Time
}

// NewAggregator returns an Aggregator with the default scorer for every category.
func NewAggregator() *Aggregator {
	return &Aggregator{
		scorers: defaultScorers(),
		now:     time.Now,
	}
}

var defaultAggregator = NewAggregator()

// Aggregate scores facts with the default scorers.
func Aggregate(facts *PageFacts, opts AnalysisOptions) (*CompleteAnalysisResults, error) {
	return defaultAggregator.Aggregate(facts, opts)
}

// Aggregate runs every applicable scorer. The performance category is only
// scored when requested and metrics are present; otherwise its slot is nil.
// Any scorer failure fails the whole report.
func (a *Aggregator) Aggregate(facts *PageFacts, opts AnalysisOptions) (*CompleteAnalysisResults, error) {
	if facts == nil {
		return nil, errors.New("aggregate: nil page facts")
	}

	categories := make(map[Category]*AnalysisResult, len(Categories))
	sum, produced := 0, 0
	for _, c := range Categories {
		if c == CategoryPerformance && (!opts.IncludePerformance || facts.Performance == nil) {
			categories[c] = nil
			continue
		}
		res, err := a.run(c, facts, opts)
		if err != nil {
			return nil, err
		}
		categories[c] = res
		sum += res.Score
		produced++
	}

	return &CompleteAnalysisResults{
		URL:          facts.URL,
		OverallScore: overallScore(sum, produced),
		Timestamp:    a.now().UTC(),
		Categories:   categories,
	}, nil
}

// run invokes one scorer, converting errors and panics into an AnalysisError.
func (a *Aggregator) run(c Category, facts *PageFacts, opts AnalysisOptions) (res *AnalysisResult, err error) {
	scorer, ok := a.scorers[c]
	if !ok {
		return nil, &AnalysisError{Category: c, Err: errors.New("no scorer registered")}
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &AnalysisError{Category: c, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err := scorer(facts, opts)
	if err != nil {
		return nil, &AnalysisError{Category: c, Err: err}
	}
	out.Score = clampScore(out.Score)
	if out.Feedback == nil {
		out.Feedback = []Feedback{}
	}
	sortFeedback(out.Feedback)
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return &out, nil
}

// overallScore is the rounded mean of the produced scores, clamped to 0..100.
func overallScore(sum, produced int) int {
	if produced == 0 {
		return 0
	}
	return clampScore(int(math.Round(float64(sum) / float64(produced))))
}
