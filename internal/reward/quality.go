package reward

import (
	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/domain"
)

// QualityModifiers are the player attributes that improve an item's quality chances.
type QualityModifiers struct {
	ProfessionLevel int
	StationLevel    int
}

// Bonus is the weighted modifier score fed into each tier's bonus factor.
func (m QualityModifiers) Bonus() float64 {
	return float64(m.ProfessionLevel*5 + m.StationLevel*10)
}

// QualityBand is a tier's resolved chance in percent.
type QualityBand struct {
	Tier    domain.Quality `json:"tier"`
	Percent float64        `json:"percent"`
}

// QualityBands resolves the tier chances for mods, best tier first. Bands never exceed 100% in
// total; poor receives the remainder.
func QualityBands(tiers []catalog.QualityTier, mods QualityModifiers) []QualityBand {
	byTier := make(map[domain.Quality]catalog.QualityTier, len(tiers))
	for _, t := range tiers {
		byTier[t.Tier] = t
	}

	bonus := mods.Bonus()
	bands := make([]QualityBand, 0, len(domain.QualityTiers))
	remaining := 100.0
	for _, tier := range domain.QualityTiers {
		if tier == domain.QualityPoor {
			break
		}
		def := byTier[tier]
		pct := def.BasePercent + def.BonusFactor*bonus
		if pct > remaining {
			pct = remaining
		}
		if pct < 0 {
			pct = 0
		}
		remaining -= pct
		bands = append(bands, QualityBand{Tier: tier, Percent: pct})
	}
	return append(bands, QualityBand{Tier: domain.QualityPoor, Percent: remaining})
}

// RollQuality draws r in [0,100) and walks the bands from the best tier down, returning the
// first tier whose cumulative threshold exceeds r.
func RollQuality(bands []QualityBand, src Source) domain.Quality {
	r := src.Float64() * 100
	cumulative := 0.0
	for _, b := range bands {
		cumulative += b.Percent
		if r < cumulative {
			return b.Tier
		}
	}
	return domain.QualityPoor
}
