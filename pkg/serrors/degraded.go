package serrors

import (
	"errors"
	"fmt"
)

// DegradedError reports that a state change was persisted but its audit
// entry could not be written. The mutation is not rolled back.
type DegradedError struct {
	Entity   string
	EntityID string
	Action   string
	Cause    error
}

func NewDegradedError(entity, id, action string, cause error) *DegradedError {
	return &DegradedError{Entity: entity, EntityID: id, Action: action, Cause: cause}
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s %s %s applied but audit entry not recorded: %v", e.Entity, e.EntityID, e.Action, e.Cause)
}

func (e *DegradedError) Unwrap() error { return e.Cause }

// IsDegraded reports whether err signals a committed change with a missing audit entry.
func IsDegraded(err error) bool {
	var de *DegradedError
	return errors.As(err, &de)
}
