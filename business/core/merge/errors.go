package merge

import "fmt"

// MalformedTripError describes a TripUpdate whose StopTimeUpdate order
// indices are non-contiguous, or whose STUs have no derivable arrival
// time. Such a TripUpdate must not be linked to its RealTimeUpdate; the
// RealTimeUpdate itself is still persisted. Consistency does not return
// this type: it reports a rejection by returning false and logging the
// reason.
type MalformedTripError struct {
	NavitiaTripID string
	Reason        string
}

func (e *MalformedTripError) Error() string {
	return fmt.Sprintf("malformed trip update for %s: %s", e.NavitiaTripID, e.Reason)
}

// UndeletableStopError is raised (as a warning, not a hard failure) when a
// delete/deleted_for_detour update references a stop that was never
// added for this trip update. The stop is skipped from iteration; the
// rest of the merge proceeds.
type UndeletableStopError struct {
	NavitiaTripID string
	StopID        string
}

func (e *UndeletableStopError) Error() string {
	return fmt.Sprintf("can't delete stop %s on trip %s: it was never added", e.StopID, e.NavitiaTripID)
}

// MissingStopPointError is raised (as a warning) when the iteration
// driver cannot resolve a theoretical stop for an entry in a complete
// update. Iteration continues with the remaining entries.
type MissingStopPointError struct {
	NavitiaTripID string
	Order         int
}

func (e *MissingStopPointError) Error() string {
	return fmt.Sprintf("no theoretical stop point found for trip %s at order %d", e.NavitiaTripID, e.Order)
}

// PublishFailureError wraps a downstream broker failure. It is raised
// after persistence completes - a failed publish never rolls back a
// successful persist.
type PublishFailureError struct {
	Contributor string
	Cause       error
}

func (e *PublishFailureError) Error() string {
	return fmt.Sprintf("failed to publish feed for contributor %s: %v", e.Contributor, e.Cause)
}

func (e *PublishFailureError) Unwrap() error {
	return e.Cause
}
