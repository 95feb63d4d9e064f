package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sumire/homestead/internal/domain"
)

type nodeRow struct {
	ID             int64         `db:"id"`
	TypeID         string        `db:"type_id"`
	X              float64       `db:"x"`
	Y              float64       `db:"y"`
	CurrentAmount  int           `db:"current_amount"`
	MaxAmount      int           `db:"max_amount"`
	IsDepleted     bool          `db:"is_depleted"`
	DepletedAt     sql.NullInt64 `db:"depleted_at"`
	RespawnMinutes int           `db:"respawn_minutes"`
}

func (r nodeRow) toDomain() *domain.ResourceNode {
	n := &domain.ResourceNode{
		ID:             r.ID,
		TypeID:         r.TypeID,
		Location:       domain.Point{X: r.X, Y: r.Y},
		CurrentAmount:  r.CurrentAmount,
		MaxAmount:      r.MaxAmount,
		IsDepleted:     r.IsDepleted,
		RespawnMinutes: r.RespawnMinutes,
	}
	if r.DepletedAt.Valid {
		t := fromUnix(r.DepletedAt.Int64)
		n.DepletedAt = &t
	}
	return n
}

func depletedAt(n domain.ResourceNode) sql.NullInt64 {
	if n.DepletedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unix(*n.DepletedAt), Valid: true}
}

// GetNode retrieves a resource node as stored; callers apply lazy respawn.
func (q *Queries) GetNode(ctx context.Context, id int64) (*domain.ResourceNode, error) {
	var row nodeRow
	err := q.get(ctx, &row,
		`SELECT id, type_id, x, y, current_amount, max_amount, is_depleted, depleted_at, respawn_minutes
		 FROM resource_nodes WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find node by id %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// CreateNode inserts a resource node.
func (q *Queries) CreateNode(ctx context.Context, n domain.ResourceNode) error {
	_, err := q.exec(ctx,
		`INSERT INTO resource_nodes (id, type_id, x, y, current_amount, max_amount, is_depleted, depleted_at, respawn_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TypeID, n.Location.X, n.Location.Y, n.CurrentAmount, n.MaxAmount,
		n.IsDepleted, depletedAt(n), n.RespawnMinutes)
	if err != nil {
		return fmt.Errorf("create node %d: %w", n.ID, err)
	}
	return nil
}

// SaveNode writes the node's amount and depletion state.
func (q *Queries) SaveNode(ctx context.Context, n domain.ResourceNode) error {
	_, err := q.exec(ctx,
		`UPDATE resource_nodes SET current_amount = ?, is_depleted = ?, depleted_at = ? WHERE id = ?`,
		n.CurrentAmount, n.IsDepleted, depletedAt(n), n.ID)
	if err != nil {
		return fmt.Errorf("save node %d: %w", n.ID, err)
	}
	return nil
}

// HarvestNode atomically removes amount from an available node, marking it depleted at at when
// it runs out, and returns the node as written. A depleted node whose respawn interval has
// elapsed is reset in place first; a node still respawning is left untouched. Both steps are
// conditional updates on the stored row, so concurrent harvests never overwrite each other.
func (q *Queries) HarvestNode(ctx context.Context, id int64, amount int, at time.Time) (*domain.ResourceNode, error) {
	_, err := q.exec(ctx,
		`UPDATE resource_nodes SET current_amount = max_amount, is_depleted = FALSE, depleted_at = NULL
		 WHERE id = ? AND is_depleted = TRUE AND depleted_at IS NOT NULL
		   AND depleted_at + respawn_minutes * 60 <= ?`,
		id, unix(at))
	if err != nil {
		return nil, fmt.Errorf("respawn node %d: %w", id, err)
	}

	_, err = q.exec(ctx,
		`UPDATE resource_nodes SET
		     current_amount = CASE WHEN current_amount > ? THEN current_amount - ? ELSE 0 END,
		     is_depleted    = CASE WHEN current_amount > ? THEN is_depleted ELSE TRUE END,
		     depleted_at    = CASE WHEN current_amount > ? THEN depleted_at ELSE ? END
		 WHERE id = ? AND is_depleted = FALSE`,
		amount, amount, amount, amount, unix(at), id)
	if err != nil {
		return nil, fmt.Errorf("harvest node %d: %w", id, err)
	}
	return q.GetNode(ctx, id)
}
