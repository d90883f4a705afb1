package mapping

import "errors"

// ErrSkipRecord signals that the source record should produce no output.
// It is a control signal, not a failure.
var ErrSkipRecord = errors.New("skip record")

// ErrNoPreferredLabel is returned when a multi-valued label has no item
// flagged as preferred.
var ErrNoPreferredLabel = errors.New("no preferred label")

// SkipError carries the reason a record was skipped.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skip record: " + e.Reason }

// Is makes errors.Is(err, ErrSkipRecord) true for every SkipError.
func (e *SkipError) Is(target error) bool { return target == ErrSkipRecord }

// Skip returns an ErrSkipRecord with a reason.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// IsSkip reports whether err asks for the record to be skipped.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkipRecord)
}
