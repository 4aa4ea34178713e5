package analyzer

import (
	"fmt"
	"math"
	"sort"
)

// Scorer computes the AnalysisResult of one category. Scorers are pure and
// share no state.
type Scorer func(facts *PageFacts, opts AnalysisOptions) (AnalysisResult, error)

// defaultScorers maps every category to its scorer.
func defaultScorers() map[Category]Scorer {
	return map[Category]Scorer{
		CategoryMeta:           scoreMeta,
		CategoryContent:        scoreContent,
		CategoryKeywords:       scoreKeywords,
		CategoryImages:         scoreImages,
		CategoryHeadings:       scoreHeadings,
		CategoryLinks:          scoreLinks,
		CategoryPerformance:    scorePerformance,
		CategoryMobile:         scoreMobile,
		CategorySecurity:       scoreSecurity,
		CategorySocial:         scoreSocial,
		CategoryStructuredData: scoreStructuredData,
	}
}

// scoreCard accumulates a score and its feedback while a scorer runs.
type scoreCard struct {
	score    int
	feedback []Feedback
	data     map[string]any
	note     string
}

func newScoreCard(start int) *scoreCard {
	return &scoreCard{
		score: start,
		data:  make(map[string]any),
	}
}

func (s *scoreCard) add(status Status, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.feedback = append(s.feedback, Feedback{Message: msg, Status: status})
}

// deduct subtracts points and records the reason.
func (s *scoreCard) deduct(points int, status Status, format string, args ...any) {
	s.score -= points
	s.add(status, format, args...)
}

func (s *scoreCard) set(key string, value any) {
	s.data[key] = value
}

func (s *scoreCard) result() AnalysisResult {
	feedback := s.feedback
	if feedback == nil {
		feedback = []Feedback{}
	}
	sortFeedback(feedback)
	return AnalysisResult{
		Score:    clampScore(s.score),
		Feedback: feedback,
		Data:     s.data,
		Note:     s.note,
	}
}

// sortFeedback orders entries critical first, keeping the scorer's order
// within a status.
func sortFeedback(feedback []Feedback) {
	sort.SliceStable(feedback, func(i, j int) bool {
		return feedback[i].Status.rank() < feedback[j].Status.rank()
	})
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// scaled multiplies a deduction by weight, rounding to whole points.
func scaled(points int, weight float64) int {
	return int(math.Round(float64(points) * weight))
}

// ratioDeduction scales maxPoints by part/total, never below floor.
func ratioDeduction(maxPoints, floor, part, total int) int {
	if total == 0 || part == 0 {
		return 0
	}
	d := int(math.Round(float64(maxPoints) * float64(part) / float64(total)))
	if d < floor {
		return floor
	}
	return d
}
