package domain

import "time"

// ResourceNode is a gatherable world resource. Depletion and respawn are evaluated lazily on
// read through Refresh.
type ResourceNode struct {
	ID             int64      `json:"id"`
	TypeID         string     `json:"type_id"`
	Location       Point      `json:"location"`
	CurrentAmount  int        `json:"current_amount"`
	MaxAmount      int        `json:"max_amount"`
	IsDepleted     bool       `json:"is_depleted"`
	DepletedAt     *time.Time `json:"depleted_at,omitempty"`
	RespawnMinutes int        `json:"respawn_minutes"`
}

// RespawnAt returns when a depleted node becomes available again.
func (n ResourceNode) RespawnAt() (time.Time, bool) {
	if !n.IsDepleted || n.DepletedAt == nil {
		return time.Time{}, false
	}
	return n.DepletedAt.Add(time.Duration(n.RespawnMinutes) * time.Minute), true
}

// Available reports whether the node can be gathered at now.
func (n ResourceNode) Available(now time.Time) bool {
	if !n.IsDepleted {
		return true
	}
	at, ok := n.RespawnAt()
	return ok && !now.Before(at)
}

// Refresh resets a depleted node whose respawn interval has elapsed. It returns true when the
// node changed and must be persisted.
func (n *ResourceNode) Refresh(now time.Time) bool {
	if !n.IsDepleted {
		if n.CurrentAmount <= 0 {
			// Repair rows written without depletion bookkeeping.
			n.IsDepleted = true
			n.DepletedAt = &now
			return true
		}
		return false
	}
	if n.DepletedAt == nil {
		// A depleted row without a timestamp starts its respawn interval now.
		n.DepletedAt = &now
		return true
	}
	if !n.Available(now) {
		return false
	}
	n.CurrentAmount = n.MaxAmount
	n.IsDepleted = false
	n.DepletedAt = nil
	return true
}
