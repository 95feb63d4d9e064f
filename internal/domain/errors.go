package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// Job start preconditions. Each is returned before any resource is debited.
var (
	ErrJobInProgress         = errors.New("another job is already in progress")
	ErrTooFar                = errors.New("target is out of reach")
	ErrNodeDepleted          = errors.New("resource node is depleted")
	ErrToolRequired          = errors.New("a suitable tool is required")
	ErrLevelTooLow           = errors.New("player level too low")
	ErrNotAtHome             = errors.New("player is not at home")
	ErrAlreadyBuilt          = errors.New("building already built")
	ErrNotBuilt              = errors.New("building not built")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrMaxLevelReached       = errors.New("building is at max level")
	ErrProfessionLevelTooLow = errors.New("profession level too low")
	ErrStationLevelTooLow    = errors.New("crafting station level too low")
)

// Job lifecycle errors.
var (
	ErrNoActiveJob      = errors.New("no active job")
	ErrNotReady         = errors.New("job is not ready")
	ErrAlreadyCollected = errors.New("job already collected")
)

var preconditionCodes = []struct {
	err  error
	code string
}{
	{ErrJobInProgress, "job_in_progress"},
	{ErrTooFar, "too_far"},
	{ErrNodeDepleted, "node_depleted"},
	{ErrToolRequired, "tool_required"},
	{ErrLevelTooLow, "level_too_low"},
	{ErrNotAtHome, "not_at_home"},
	{ErrAlreadyBuilt, "already_built"},
	{ErrNotBuilt, "not_built"},
	{ErrInsufficientResources, "insufficient_resources"},
	{ErrMaxLevelReached, "max_level_reached"},
	{ErrProfessionLevelTooLow, "profession_level_too_low"},
	{ErrStationLevelTooLow, "station_level_too_low"},
}

// PreconditionCode returns the stable code of a start precondition error, or false when err is
// not one.
func PreconditionCode(err error) (string, bool) {
	for _, p := range preconditionCodes {
		if errors.Is(err, p.err) {
			return p.code, true
		}
	}
	return "", false
}

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NotReadyError reports how long a job still has to run. It matches ErrNotReady.
type NotReadyError struct {
	Remaining time.Duration
	Paused    bool
}

func (e *NotReadyError) Error() string {
	if e.Paused {
		return fmt.Sprintf("job is paused with %ds remaining", int64(e.Remaining.Seconds()))
	}
	return fmt.Sprintf("job is not ready: %ds remaining", int64(e.Remaining.Seconds()))
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// InsufficientResourcesError lists the shortfall per item. It matches ErrInsufficientResources.
type InsufficientResourcesError struct {
	Missing map[string]int
}

func (e *InsufficientResourcesError) Error() string {
	items := make([]string, 0, len(e.Missing))
	for item := range e.Missing {
		items = append(items, item)
	}
	sort.Strings(items)

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item, e.Missing[item]))
	}
	return "insufficient resources: missing " + strings.Join(parts, ", ")
}

func (e *InsufficientResourcesError) Is(target error) bool {
	return target == ErrInsufficientResources
}
