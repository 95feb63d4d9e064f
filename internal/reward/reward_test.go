package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/domain"
)

// script replays fixed draws in order.
type script struct {
	floats []float64
	ints   []int
}

func (s *script) Float64() float64 {
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *script) IntN(n int) int {
	i := s.ints[0]
	s.ints = s.ints[1:]
	if i >= n {
		return n - 1
	}
	return i
}

var tiers = []catalog.QualityTier{
	{Tier: domain.QualityPoor},
	{Tier: domain.QualityNormal, BasePercent: 50},
	{Tier: domain.QualityGood, BasePercent: 20, BonusFactor: 0.5},
	{Tier: domain.QualityExcellent, BasePercent: 8, BonusFactor: 0.1},
	{Tier: domain.QualityMasterwork, BasePercent: 2},
	{Tier: domain.QualityLegendary, BasePercent: 0.5},
}

func TestQualityBands(t *testing.T) {
	bands := QualityBands(tiers, QualityModifiers{ProfessionLevel: 2, StationLevel: 1})
	require.Len(t, bands, 6)

	// bonus = 2*5 + 1*10 = 20
	want := []QualityBand{
		{domain.QualityLegendary, 0.5},
		{domain.QualityMasterwork, 2},
		{domain.QualityExcellent, 10},
		{domain.QualityGood, 30},
		{domain.QualityNormal, 50},
		{domain.QualityPoor, 7.5},
	}
	for i, b := range want {
		assert.Equal(t, b.Tier, bands[i].Tier)
		assert.InDelta(t, b.Percent, bands[i].Percent, 1e-9, "tier %s", b.Tier)
	}
}

func TestQualityBands_CappedAtHundred(t *testing.T) {
	bands := QualityBands(tiers, QualityModifiers{ProfessionLevel: 50, StationLevel: 10})

	total := 0.0
	for _, b := range bands {
		assert.GreaterOrEqual(t, b.Percent, 0.0)
		total += b.Percent
	}
	assert.InDelta(t, 100, total, 1e-9)
	assert.Zero(t, bands[len(bands)-1].Percent)
}

func TestRollQuality(t *testing.T) {
	bands := QualityBands(tiers, QualityModifiers{})
	// legendary 0.5, masterwork 2, excellent 8, good 20, normal 50, poor 19.5
	tests := []struct {
		roll float64
		want domain.Quality
	}{
		{0.000, domain.QualityLegendary},
		{0.004, domain.QualityLegendary},
		{0.010, domain.QualityMasterwork},
		{0.100, domain.QualityExcellent},
		{0.200, domain.QualityGood},
		{0.500, domain.QualityNormal},
		{0.804, domain.QualityNormal},
		{0.806, domain.QualityPoor},
		{0.999, domain.QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RollQuality(bands, Fixed{Roll: tt.roll}), "roll %v", tt.roll)
	}
}

func TestRollQuality_SeededIsReproducible(t *testing.T) {
	bands := QualityBands(tiers, QualityModifiers{ProfessionLevel: 3})
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, RollQuality(bands, a), RollQuality(bands, b))
	}
}

func TestResolveTable(t *testing.T) {
	base := []catalog.DropEntry{
		{Item: "wood", Chance: 100, MinQuantity: 1, MaxQuantity: 3},
		{Item: "amber", Chance: 1, MinQuantity: 1, MaxQuantity: 1, Rare: true},
		{Item: "ruby", Chance: 99, MinQuantity: 1, MaxQuantity: 1, Rare: true},
		{Item: "mithril", Chance: 5, MinQuantity: 1, MaxQuantity: 1, MinToolTier: 3},
	}

	table := ResolveTable(base, DropModifiers{ToolTier: 2, RareDropBonus: 4, EfficiencyBonusPct: 50})
	require.Len(t, table.Drops, 3)
	assert.Equal(t, 100.0, table.Drops[0].Chance)
	assert.Equal(t, 5.0, table.Drops[1].Chance)
	assert.Equal(t, 100.0, table.Drops[2].Chance)
	assert.Equal(t, 50, table.EfficiencyBonusPct)

	assert.Len(t, ResolveTable(base, DropModifiers{ToolTier: 3}).Drops, 4)
}

func TestTableRoll_GuaranteedSingle(t *testing.T) {
	table := ResolveTable([]catalog.DropEntry{{Item: "wood", Chance: 100, MinQuantity: 1, MaxQuantity: 1}}, DropModifiers{})
	src := NewSeeded(7)
	for i := 0; i < 500; i++ {
		got := table.Roll(src)
		require.Len(t, got, 1)
		assert.Equal(t, domain.ItemStack{Item: "wood", Quantity: 1}, got[0])
	}
}

func TestTableRoll_IndependentEntries(t *testing.T) {
	table := ResolveTable([]catalog.DropEntry{
		{Item: "wood", Chance: 100, MinQuantity: 2, MaxQuantity: 4},
		{Item: "resin", Chance: 15, MinQuantity: 1, MaxQuantity: 1},
		{Item: "wood", Chance: 50, MinQuantity: 1, MaxQuantity: 1},
	}, DropModifiers{EfficiencyBonusPct: 25})

	src := &script{floats: []float64{0.99, 0.10, 0.40}, ints: []int{2}}
	got := table.Roll(src)

	// wood: (2+2)*125/100 = 5; resin: 1*125/100 = 1; second wood: 1*125/100 = 1
	assert.Equal(t, []domain.ItemStack{{Item: "wood", Quantity: 6}, {Item: "resin", Quantity: 1}}, got)
}

func TestTableRoll_Misses(t *testing.T) {
	table := ResolveTable([]catalog.DropEntry{
		{Item: "resin", Chance: 15, MinQuantity: 1, MaxQuantity: 1},
		{Item: "never", Chance: 0, MinQuantity: 1, MaxQuantity: 1},
	}, DropModifiers{})

	assert.Empty(t, table.Roll(Fixed{Roll: 0.15}))
	assert.Equal(t, []domain.ItemStack{{Item: "resin", Quantity: 1}}, table.Roll(Fixed{Roll: 0}))
}

func TestToolModifiers(t *testing.T) {
	assert.Equal(t, DropModifiers{}, ToolModifiers(nil))
	tool := &catalog.Tool{ID: "bronze_axe", Tier: 2, RareDropBonus: 2, EfficiencyBonusPct: 25}
	assert.Equal(t, DropModifiers{ToolTier: 2, RareDropBonus: 2, EfficiencyBonusPct: 25}, ToolModifiers(tool))
}
