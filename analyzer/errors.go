package analyzer

import "fmt"

// ClientInputError reports a request that cannot be analyzed as given.
type ClientInputError struct {
	Message string
}

func (e *ClientInputError) Error() string {
	return e.Message
}

// ExtractionError reports HTML that could not be turned into PageFacts.
type ExtractionError struct {
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Err)
	}
	return "extraction failed: " + e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// AnalysisError reports a failing category scorer.
type AnalysisError struct {
	Category Category
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of category %q failed: %v", e.Category, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
