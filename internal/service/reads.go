package service

import (
	"context"

	"github.com/sumire/homestead/internal/domain"
	"github.com/sumire/homestead/internal/repository"
)

// InventoryView is a player's resource ledger and crafted items.
type InventoryView struct {
	Items   []domain.ItemStack   `json:"items"`
	Crafted []domain.CraftedItem `json:"crafted"`
}

// GetNode returns a resource node with its respawn applied.
func (s *JobService) GetNode(ctx context.Context, id int64) (*domain.ResourceNode, error) {
	now := s.clock.Now()

	var node *domain.ResourceNode
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		var err error
		if node, err = q.GetNode(ctx, id); err != nil {
			return err
		}
		if node.Refresh(now) {
			return q.SaveNode(ctx, *node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Inventory returns what the player holds.
func (s *JobService) Inventory(ctx context.Context, ownerID int64) (*InventoryView, error) {
	var view InventoryView
	err := s.store.RunInTx(ctx, func(q repository.Querier) error {
		var err error
		if view.Items, err = q.Inventory(ctx, ownerID); err != nil {
			return err
		}
		view.Crafted, err = q.CraftedItems(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
