package reward

import (
	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/domain"
)

// DropModifiers come from the tool used for a gathering job.
type DropModifiers struct {
	ToolTier           int
	RareDropBonus      float64
	EfficiencyBonusPct int
}

// ToolModifiers returns the modifiers for t; a nil tool gives none.
func ToolModifiers(t *catalog.Tool) DropModifiers {
	if t == nil {
		return DropModifiers{}
	}
	return DropModifiers{
		ToolTier:           t.Tier,
		RareDropBonus:      t.RareDropBonus,
		EfficiencyBonusPct: t.EfficiencyBonusPct,
	}
}

// Drop is a drop-table entry after modifiers have been applied.
type Drop struct {
	Item        string  `json:"item"`
	Chance      float64 `json:"chance"`
	MinQuantity int     `json:"min_quantity"`
	MaxQuantity int     `json:"max_quantity"`
}

// Table is a resolved drop table.
type Table struct {
	Drops              []Drop
	EfficiencyBonusPct int
}

// ResolveTable applies mods to a base drop table. Entries gated behind a higher tool tier are
// removed and rare entries receive the tool's rare-drop bonus.
func ResolveTable(base []catalog.DropEntry, mods DropModifiers) Table {
	drops := make([]Drop, 0, len(base))
	for _, e := range base {
		if e.MinToolTier > mods.ToolTier {
			continue
		}
		chance := e.Chance
		if e.Rare {
			chance += mods.RareDropBonus
		}
		if chance > 100 {
			chance = 100
		}
		drops = append(drops, Drop{
			Item:        e.Item,
			Chance:      chance,
			MinQuantity: e.MinQuantity,
			MaxQuantity: e.MaxQuantity,
		})
	}
	return Table{Drops: drops, EfficiencyBonusPct: mods.EfficiencyBonusPct}
}

// Roll resolves every entry independently. A successful entry yields a uniform quantity in
// [MinQuantity, MaxQuantity] scaled by the efficiency bonus and rounded down. Results for the
// same item are merged, in table order.
func (t Table) Roll(src Source) []domain.ItemStack {
	var out []domain.ItemStack
	index := make(map[string]int)
	for _, d := range t.Drops {
		if src.Float64()*100 >= d.Chance {
			continue
		}
		qty := d.MinQuantity
		if span := d.MaxQuantity - d.MinQuantity; span > 0 {
			qty += src.IntN(span + 1)
		}
		qty = qty * (100 + t.EfficiencyBonusPct) / 100
		if qty <= 0 {
			continue
		}
		if i, ok := index[d.Item]; ok {
			out[i].Quantity += qty
			continue
		}
		index[d.Item] = len(out)
		out = append(out, domain.ItemStack{Item: d.Item, Quantity: qty})
	}
	return out
}
