package llm

import "fmt"

// EmbeddingError reports a failed or impossible embedding request.
// Reason is a short human-readable cause; Err carries the underlying failure when there is one.
type EmbeddingError struct {
	Op     string
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding %s failed: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("embedding %s failed: %s", e.Op, e.Reason)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError is returned when two vectors of different length are compared.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d != %d", e.Left, e.Right)
}
