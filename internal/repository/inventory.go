package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/homestead/internal/domain"
)

// Inventory lists all items a player holds, by item id.
func (q *Queries) Inventory(ctx context.Context, playerID int64) ([]domain.ItemStack, error) {
	stacks := []domain.ItemStack{}
	err := q.sel(ctx, &stacks,
		`SELECT item_id AS item, quantity FROM inventory
		 WHERE player_id = ? AND quantity > 0 ORDER BY item_id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory for player %d: %w", playerID, err)
	}
	return stacks, nil
}

// Quantities returns the held quantity for each requested item; missing items map to 0.
func (q *Queries) Quantities(ctx context.Context, playerID int64, items []string) (map[string]int, error) {
	out := make(map[string]int, len(items))
	if len(items) == 0 {
		return out, nil
	}
	for _, item := range items {
		out[item] = 0
	}

	query, args, err := sqlx.In(
		`SELECT item_id AS item, quantity FROM inventory WHERE player_id = ? AND item_id IN (?)`,
		playerID, items)
	if err != nil {
		return nil, fmt.Errorf("build quantities query: %w", err)
	}

	var stacks []domain.ItemStack
	if err := q.sel(ctx, &stacks, query, args...); err != nil {
		return nil, fmt.Errorf("read quantities for player %d: %w", playerID, err)
	}
	for _, s := range stacks {
		out[s.Item] = s.Quantity
	}
	return out, nil
}

// Debit removes stacks from the player's inventory. If any item is short nothing is debited
// and an *domain.InsufficientResourcesError is returned. Run it in a transaction when it is
// combined with other writes.
func (q *Queries) Debit(ctx context.Context, playerID int64, stacks []domain.ItemStack) error {
	need := Merge(stacks)
	if len(need) == 0 {
		return nil
	}

	items := make([]string, 0, len(need))
	for _, s := range need {
		items = append(items, s.Item)
	}
	held, err := q.Quantities(ctx, playerID, items)
	if err != nil {
		return err
	}

	missing := map[string]int{}
	for _, s := range need {
		if held[s.Item] < s.Quantity {
			missing[s.Item] = s.Quantity - held[s.Item]
		}
	}
	if len(missing) > 0 {
		return &domain.InsufficientResourcesError{Missing: missing}
	}

	for _, s := range need {
		n, err := q.exec(ctx,
			`UPDATE inventory SET quantity = quantity - ?
			 WHERE player_id = ? AND item_id = ? AND quantity >= ?`,
			s.Quantity, playerID, s.Item, s.Quantity)
		if err != nil {
			return fmt.Errorf("debit %s for player %d: %w", s.Item, playerID, err)
		}
		if n == 0 {
			// Another writer spent it between the read and the update.
			return &domain.InsufficientResourcesError{Missing: map[string]int{s.Item: s.Quantity}}
		}
	}
	return nil
}

// Credit adds stacks to the player's inventory.
func (q *Queries) Credit(ctx context.Context, playerID int64, stacks []domain.ItemStack) error {
	for _, s := range Merge(stacks) {
		_, err := q.exec(ctx,
			`INSERT INTO inventory (player_id, item_id, quantity)
			 VALUES (?, ?, ?)
			 ON CONFLICT (player_id, item_id)
			 DO UPDATE SET quantity = inventory.quantity + excluded.quantity`,
			playerID, s.Item, s.Quantity)
		if err != nil {
			return fmt.Errorf("credit %s for player %d: %w", s.Item, playerID, err)
		}
	}
	return nil
}

type craftedRow struct {
	JobID     string `db:"job_id"`
	PlayerID  int64  `db:"player_id"`
	ItemID    string `db:"item_id"`
	Quality   string `db:"quality"`
	CreatedAt int64  `db:"created_at"`
}

// AddCraftedItem stores a crafted item. A job can produce at most one item.
func (q *Queries) AddCraftedItem(ctx context.Context, item domain.CraftedItem) error {
	_, err := q.exec(ctx,
		`INSERT INTO crafted_items (job_id, player_id, item_id, quality, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		item.JobID, item.PlayerID, item.ItemID, string(item.Quality), unix(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("add crafted item for job %s: %w", item.JobID, err)
	}
	return nil
}

// CraftedItems lists a player's crafted items, oldest first.
func (q *Queries) CraftedItems(ctx context.Context, playerID int64) ([]domain.CraftedItem, error) {
	var rows []craftedRow
	err := q.sel(ctx, &rows,
		`SELECT job_id, player_id, item_id, quality, created_at
		 FROM crafted_items WHERE player_id = ? ORDER BY created_at, job_id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list crafted items for player %d: %w", playerID, err)
	}

	items := make([]domain.CraftedItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.CraftedItem{
			JobID:     r.JobID,
			PlayerID:  r.PlayerID,
			ItemID:    r.ItemID,
			Quality:   domain.Quality(r.Quality),
			CreatedAt: fromUnix(r.CreatedAt),
		})
	}
	return items, nil
}

// Merge sums stacks of the same item, drops non-positive quantities and orders by item id.
func Merge(stacks []domain.ItemStack) []domain.ItemStack {
	sum := make(map[string]int, len(stacks))
	for _, s := range stacks {
		if s.Quantity > 0 {
			sum[s.Item] += s.Quantity
		}
	}
	out := make([]domain.ItemStack, 0, len(sum))
	for item, qty := range sum {
		out = append(out, domain.ItemStack{Item: item, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
