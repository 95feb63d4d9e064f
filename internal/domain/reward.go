package domain

import "time"

// Reward is what a successful collection grants.
type Reward struct {
	JobID      string              `json:"job_id"`
	Kind       JobKind             `json:"kind"`
	Items      []ItemStack         `json:"items,omitempty"`
	Crafted    *CraftedItem        `json:"crafted,omitempty"`
	Profession *ProfessionProgress `json:"profession,omitempty"`
	Building   *Building           `json:"building,omitempty"`
}

// CraftedItem is a single produced piece of equipment with its quality tier. The crafting job
// that produced it identifies it.
type CraftedItem struct {
	JobID     string    `json:"job_id"`
	PlayerID  int64     `json:"-"`
	ItemID    string    `json:"item_id"`
	Quality   Quality   `json:"quality"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfessionProgress reports experience gained by a crafting collection.
type ProfessionProgress struct {
	Profession       string `json:"profession"`
	ExperienceGained int    `json:"experience_gained"`
	Level            int    `json:"level"`
	Experience       int    `json:"experience"`
	LevelsGained     int    `json:"levels_gained"`
}

// JobEventType names a committed job transition.
type JobEventType string

const (
	JobEventStarted   JobEventType = "started"
	JobEventCollected JobEventType = "collected"
	JobEventCancelled JobEventType = "cancelled"
)

// JobEvent is published after a job transition has been committed.
type JobEvent struct {
	Type    JobEventType `json:"type"`
	JobID   string       `json:"job_id"`
	OwnerID int64        `json:"owner_id"`
	Kind    JobKind      `json:"kind"`
	At      time.Time    `json:"at"`
}
