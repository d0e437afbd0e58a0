package smc

import (
	"fmt"

	"signal-scanner/internal/market"
)

// ZoneConfig tunes zone formation, strength grading and refinement.
type ZoneConfig struct {
	// ImpulseBodyRatio is the minimum body-to-range ratio of the impulse
	// candle for a zone to form.
	ImpulseBodyRatio float64
	// StrongRatio and ModerateRatio grade the impulse strength.
	StrongRatio   float64
	ModerateRatio float64
	// PipCeilings caps the span, in pips, a refined zone may have per
	// timeframe. A refinement wider than the ceiling is rejected.
	PipCeilings map[market.Timeframe]float64
}

// DefaultZoneConfig returns the standard zone engine tuning.
func DefaultZoneConfig() ZoneConfig {
	return ZoneConfig{
		ImpulseBodyRatio: 0.60,
		StrongRatio:      0.70,
		ModerateRatio:    0.50,
		PipCeilings: map[market.Timeframe]float64{
			market.TF1H:  50,
			market.TF30M: 40,
			market.TF15M: 30,
			market.TF5M:  20,
			market.TF3M:  15,
			market.TF1M:  10,
		},
	}
}

// ZoneDetector finds supply/demand zones and refines them across
// timeframes.
type ZoneDetector struct {
	cfg ZoneConfig
}

// NewZoneDetector creates a detector, filling zero config values with
// defaults.
func NewZoneDetector(cfg ZoneConfig) *ZoneDetector {
	def := DefaultZoneConfig()
	if cfg.ImpulseBodyRatio <= 0 {
		cfg.ImpulseBodyRatio = def.ImpulseBodyRatio
	}
	if cfg.StrongRatio <= 0 {
		cfg.StrongRatio = def.StrongRatio
	}
	if cfg.ModerateRatio <= 0 {
		cfg.ModerateRatio = def.ModerateRatio
	}
	if cfg.PipCeilings == nil {
		cfg.PipCeilings = def.PipCeilings
	}
	return &ZoneDetector{cfg: cfg}
}

// DetectZones scans a candle window for supply/demand zones. A zone forms
// at the base candle's full range when the next candle is a strong
// directional impulse and the candle after that continues the move. The
// zone's mitigation state and touch count reflect all candles after
// formation, up to the end of the window.
func (d *ZoneDetector) DetectZones(candles []market.Candle) (*ZoneSet, []string) {
	set := &ZoneSet{}
	if len(candles) > 0 {
		set.Timeframe = candles[0].Timeframe
	}
	if len(candles) < 3 {
		return set, []string{fmt.Sprintf("insufficient candles for zone detection: %d < 3", len(candles))}
	}

	for i := 0; i+2 < len(candles); i++ {
		base, impulse, confirm := candles[i], candles[i+1], candles[i+2]
		ratio := impulse.BodyRatio()
		if ratio < d.cfg.ImpulseBodyRatio {
			continue
		}

		var zt ZoneType
		switch {
		case impulse.IsBearish() && confirm.IsBearish():
			zt = ZoneSupply
		case impulse.IsBullish() && confirm.IsBullish():
			zt = ZoneDemand
		default:
			continue
		}

		z := Zone{
			Type:           zt,
			Top:            base.High,
			Bottom:         base.Low,
			FormedIndex:    i,
			FormedAt:       base.Timestamp,
			Timeframe:      base.Timeframe,
			Status:         StatusUnmitigated,
			MitigatedIndex: -1,
			RefinedFrom:    -1,
		}
		d.trackZone(&z, candles, i+3)
		z.Strength = d.grade(ratio, z.Touches)
		set.Zones = append(set.Zones, z)
	}

	return set, []string{fmt.Sprintf("zones detected: %d (%d unmitigated)", len(set.Zones), set.CountUnmitigated())}
}

// trackZone walks candles after formation counting re-touches and
// applying the strict mitigation rule: a close inside the zone plus a
// next-candle reaction in the expected direction. A wick into the zone
// without a qualifying close does not mitigate, it only counts as a
// touch.
func (d *ZoneDetector) trackZone(z *Zone, candles []market.Candle, from int) {
	for i := from; i < len(candles); i++ {
		c := candles[i]
		entered := c.High >= z.Bottom && c.Low <= z.Top
		if !entered {
			continue
		}

		if z.Contains(c.Close) && i+1 < len(candles) {
			next := candles[i+1]
			reacted := false
			switch z.Type {
			case ZoneSupply:
				reacted = next.Close < c.Close
			case ZoneDemand:
				reacted = next.Close > c.Close
			}
			if reacted {
				z.Status = StatusMitigated
				z.MitigatedIndex = i
				return
			}
		}
		z.Touches++
	}
}

func (d *ZoneDetector) grade(impulseRatio float64, touches int) ZoneStrength {
	switch {
	case impulseRatio > d.cfg.StrongRatio && touches == 0:
		return StrengthStrong
	case impulseRatio > d.cfg.ModerateRatio && touches <= 1:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Refine re-runs zone formation on a finer timeframe's candles and keeps
// the result only when it is unambiguous: exactly one matching-type zone
// inside the coarse zone's bounds (or exactly one unmitigated among
// several), with a span under the finer timeframe's pip ceiling. On any
// other outcome the coarse zone is kept unchanged.
//
// coarseIndex is the coarse zone's index in its own ZoneSet, recorded on
// the refined zone as RefinedFrom.
func (d *ZoneDetector) Refine(coarse Zone, coarseIndex int, fine []market.Candle, pipSize float64) (Zone, bool) {
	if len(fine) < 3 {
		return coarse, false
	}

	set, _ := d.DetectZones(fine)
	var inside []int
	for i, z := range set.Zones {
		if z.Type != coarse.Type {
			continue
		}
		if z.Bottom >= coarse.Bottom && z.Top <= coarse.Top {
			inside = append(inside, i)
		}
	}

	if len(inside) == 0 {
		return coarse, false
	}
	if len(inside) > 1 {
		var unmit []int
		for _, i := range inside {
			if set.Zones[i].Status == StatusUnmitigated {
				unmit = append(unmit, i)
			}
		}
		if len(unmit) != 1 {
			return coarse, false
		}
		inside = unmit
	}

	refined := set.Zones[inside[0]]
	if pipSize > 0 {
		tf := refined.Timeframe
		if ceiling, ok := d.cfg.PipCeilings[tf]; ok && refined.Size() > ceiling*pipSize {
			return coarse, false
		}
	}

	refined.RefinedFrom = coarseIndex
	return refined, true
}

// RefineLevel is one step of the refinement cascade: the finer
// timeframe's candle window to refine onto.
type RefineLevel struct {
	Candles []market.Candle
}

// RefineCascade refines a zone through successive finer levels, stopping
// at the previous level as soon as a step is ambiguous or rejected. The
// returned zone is the finest unambiguous refinement, or the original
// coarse zone when no step succeeded.
func (d *ZoneDetector) RefineCascade(coarse Zone, coarseIndex int, levels []RefineLevel, pipSize float64) Zone {
	current := coarse
	currentIndex := coarseIndex
	for _, lvl := range levels {
		refined, ok := d.Refine(current, currentIndex, lvl.Candles, pipSize)
		if !ok {
			return current
		}
		current = refined
		// Deeper steps refine the refined zone; its index is only
		// meaningful within the fine set it came from, so link back to
		// the original coarse zone throughout the cascade.
		currentIndex = coarseIndex
	}
	return current
}
