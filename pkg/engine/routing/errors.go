package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStopsFound start or end name resolves to no stop. not a fault.
	ErrNoStopsFound = errors.New("no stop matches the station name")
	// ErrNoPathFound the frontier was exhausted before reaching the sink. not a fault.
	ErrNoPathFound = errors.New("no path found")
	// ErrDiscoveryFailure the schedule or transfer collaborator failed, the whole search is aborted.
	ErrDiscoveryFailure = errors.New("discovery failed")
	ErrCancelled        = errors.New("search cancelled")
)

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func discoveryFailure(cause error) error {
	return fmt.Errorf("%w: %w", ErrDiscoveryFailure, cause)
}
