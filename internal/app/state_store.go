package app

import "engtest-service/internal/domain"

// Storage key names for the two shared records. Backends persist exactly
// these keys; change notifications carry them.
const (
	KeyActiveTest = "activeTest"
	KeyResults    = "results"
)

// StateChange announces that one of the shared records was mutated.
type StateChange struct {
	Key string
}

// StateStore owns the authoritative working copy of the active test and the
// result collection. Mutations are written through to a persistence backend
// and broadcast to subscribers. Results are append-only.
type StateStore interface {
	ActiveTest() (domain.Test, bool)
	SaveTest(test domain.Test)
	DeleteTest()
	Results() []domain.StudentResult
	AppendResult(result domain.StudentResult)
	// Subscribe returns a channel of change events. The caller must invoke
	// the returned cancel function to avoid leaks.
	Subscribe() (<-chan StateChange, func())
}
