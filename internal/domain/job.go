package domain

import (
	"math"
	"time"
)

// JobKind identifies which production system a job belongs to.
type JobKind string

const (
	JobKindGathering  JobKind = "gathering"
	JobKindBuilding   JobKind = "building"
	JobKindCrafting   JobKind = "crafting"
	JobKindCollection JobKind = "collection"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindGathering, JobKindBuilding, JobKindCrafting, JobKindCollection:
		return true
	}
	return false
}

// PauseEligible reports whether jobs of this kind only progress while the owner is at home.
func (k JobKind) PauseEligible() bool {
	return k == JobKindBuilding || k == JobKindCrafting
}

// JobStatus represents the lifecycle state of a job. JobStatusReady is derived, never stored.
type JobStatus string

const (
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusReady     JobStatus = "ready"
	JobStatusCollected JobStatus = "collected"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCollected || s == JobStatusCancelled
}

// JobTarget references the catalog definition a job produces. Which fields are set depends on
// the job kind.
type JobTarget struct {
	NodeID      int64  `json:"node_id,omitempty"`
	ToolID      string `json:"tool_id,omitempty"`
	BuildingID  string `json:"building_id,omitempty"`
	TargetLevel int    `json:"target_level,omitempty"`
	RecipeID    string `json:"recipe_id,omitempty"`
}

// PauseState snapshots a pause-eligible job while its owner is away. While it is set, FinishAt
// is stale and RemainingSeconds is authoritative.
type PauseState struct {
	PausedAt         time.Time `json:"paused_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

// Job is a time-delayed production task owned by one player.
type Job struct {
	ID             string      `json:"id"`
	OwnerID        int64       `json:"owner_id"`
	Kind           JobKind     `json:"kind"`
	Status         JobStatus   `json:"status"`
	Target         JobTarget   `json:"target"`
	StartedAt      time.Time   `json:"started_at"`
	FinishAt       time.Time   `json:"finish_at"`
	Pause          *PauseState `json:"pause,omitempty"`
	Quality        Quality     `json:"-"`
	ConsumedInputs []ItemStack `json:"consumed_inputs,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// Remaining returns the time left before the job is ready.
func (j Job) Remaining(now time.Time) time.Duration {
	if j.Status.Terminal() {
		return 0
	}
	if j.Pause != nil {
		return time.Duration(j.Pause.RemainingSeconds) * time.Second
	}
	if d := j.FinishAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// DerivedStatus evaluates the job status at now without mutating the job.
func (j Job) DerivedStatus(now time.Time) JobStatus {
	switch {
	case j.Status.Terminal():
		return j.Status
	case j.Pause != nil:
		return JobStatusPaused
	case !now.Before(j.FinishAt):
		return JobStatusReady
	default:
		return JobStatusActive
	}
}

// Reconcile applies pause/resume bookkeeping for pause-eligible jobs given the owner's presence.
// It returns true when the job changed and must be persisted.
func (j *Job) Reconcile(now time.Time, atHome bool) bool {
	if j.Status.Terminal() || !j.Kind.PauseEligible() {
		return false
	}

	if j.Pause == nil && !atHome {
		remaining := int64(math.Ceil(j.FinishAt.Sub(now).Seconds()))
		if remaining <= 0 {
			// Finished jobs stay ready even if the owner walks away.
			return false
		}
		j.Pause = &PauseState{PausedAt: now, RemainingSeconds: remaining}
		j.Status = JobStatusPaused
		return true
	}

	if j.Pause != nil && atHome {
		j.FinishAt = now.Add(time.Duration(j.Pause.RemainingSeconds) * time.Second)
		j.Pause = nil
		j.Status = JobStatusActive
		return true
	}

	return false
}

// ItemStack is a quantity of one catalog item.
type ItemStack struct {
	Item     string `json:"item" db:"item"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Quality is the tier of a crafted item.
type Quality string

const (
	QualityPoor       Quality = "poor"
	QualityNormal     Quality = "normal"
	QualityGood       Quality = "good"
	QualityExcellent  Quality = "excellent"
	QualityMasterwork Quality = "masterwork"
	QualityLegendary  Quality = "legendary"
)

// QualityTiers lists every tier from best to worst.
var QualityTiers = []Quality{
	QualityLegendary,
	QualityMasterwork,
	QualityExcellent,
	QualityGood,
	QualityNormal,
	QualityPoor,
}

// Valid reports whether q is a known tier.
func (q Quality) Valid() bool {
	for _, t := range QualityTiers {
		if q == t {
			return true
		}
	}
	return false
}
