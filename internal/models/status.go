package models

import "fmt"

// statusAliases maps a logical status onto the stored value where a kind
// persists it under a different name.
var statusAliases = map[PostKind]map[Status]Status{
	KindReported: {StatusResolved: StatusInactive},
}

// StoredStatus converts a logical status to the value written for kind.
func StoredStatus(kind PostKind, logical Status) Status {
	if stored, ok := statusAliases[kind][logical]; ok {
		return stored
	}
	return logical
}

// LogicalStatus converts a stored value back to its logical status.
func LogicalStatus(kind PostKind, stored Status) Status {
	for logical, s := range statusAliases[kind] {
		if s == stored {
			return logical
		}
	}
	return stored
}

// IsResolvedBucket reports whether a stored status counts as resolved.
func IsResolvedBucket(kind PostKind, stored Status) bool {
	if stored == StatusResolved {
		return true
	}
	return kind == KindReported && stored == StatusInactive
}

// ParseStatus validates a logical status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusResolved, StatusInactive:
		return st, nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

// Actor distinguishes owner actions from moderation.
type Actor int

const (
	ActorOwner Actor = iota
	ActorModerator
)

// CanTransition reports whether actor may move a post between logical states.
func CanTransition(actor Actor, from, to Status) bool {
	switch actor {
	case ActorOwner:
		return (from == StatusActive && to == StatusResolved) ||
			(from == StatusResolved && to == StatusActive)
	case ActorModerator:
		return to == StatusInactive && (from == StatusActive || from == StatusResolved)
	default:
		return false
	}
}

// ValidateTransition returns a validation error for a forbidden transition.
func ValidateTransition(actor Actor, kind PostKind, storedFrom Status, to Status) error {
	from := LogicalStatus(kind, storedFrom)
	if !CanTransition(actor, from, to) {
		return NewValidationError(fmt.Sprintf("cannot change status from %s to %s", from, to))
	}
	return nil
}
