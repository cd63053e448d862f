package gnss

import "math"

const (
	// Additive weight guard: keeps 1/(acc+guard) finite when a receiver
	// reports a DOP of exactly zero.
	dopGuard = 0.1

	// Equatorial degrees-to-meters approximation used for the advanced
	// variance estimate. Deliberately not latitude-corrected.
	metersPerDegree = 111000.0

	// Vertical error of a GNSS fix runs roughly 1.5x the horizontal error.
	verticalFactor = 1.5

	minHorizontalAccuracy = 1.0 // meters
)

// fusionMember is one eligible constellation fix together with its combined
// accuracy figures for the current algorithm.
type fusionMember struct {
	c        Constellation
	lat, lon float64
	alt      *float64
	hAcc     float64
	vAcc     float64
}

// FuseSimple combines the eligible constellation fixes into a single position
// using inverse combined-accuracy weighting, overwriting the stored fused
// snapshot. Eligibility requires decoded coordinates, an HDOP, and at least
// four satellites in view. The snapshot changes only on explicit invocation,
// never as sentences arrive.
func (p *Parser) FuseSimple() {
	var members []fusionMember
	for c := range p.systems {
		s := &p.systems[c]
		if s.latitude == nil || s.longitude == nil || s.hdop == nil || len(s.satellitesInfo) < 4 {
			continue
		}
		nom := s.nominalAccuracy
		hdop := *s.hdop
		vdop := hdop * verticalFactor
		if s.vdop != nil {
			vdop = *s.vdop
		}
		members = append(members, fusionMember{
			c:    Constellation(c),
			lat:  *s.latitude,
			lon:  *s.longitude,
			alt:  cloneFloat(s.altitude),
			hAcc: math.Max(hdop*nom, nom),
			vAcc: math.Max(vdop*nom*verticalFactor, nom*verticalFactor),
		})
	}

	switch len(members) {
	case 0:
		p.fused = nil
	case 1:
		// Single member: pass its accuracies through, with only the
		// 1-meter floor applied.
		m := members[0]
		p.fused = &FusedPosition{
			Latitude:           m.lat,
			Longitude:          m.lon,
			Altitude:           altOrZero(m.alt),
			HorizontalAccuracy: math.Max(m.hAcc, minHorizontalAccuracy),
			VerticalAccuracy:   math.Max(m.vAcc, minHorizontalAccuracy*verticalFactor),
			Constellations:     []string{m.c.String()},
		}
	default:
		p.fused = p.fuseWeightedMean(members)
	}
}

// FuseAdvanced combines the eligible fixes using DOP geometry for the weights
// and a weighted-variance spread for the accuracy estimate. Eligibility is as
// for FuseSimple plus a PDOP. This is a heuristic variance-weighted average,
// not a recursive filter.
func (p *Parser) FuseAdvanced() {
	var members []fusionMember
	for c := range p.systems {
		s := &p.systems[c]
		if s.latitude == nil || s.longitude == nil || s.hdop == nil || s.pdop == nil || len(s.satellitesInfo) < 4 {
			continue
		}
		nom := s.nominalAccuracy
		hdop := *s.hdop
		pdop := *s.pdop
		vdop := pdop * 0.8
		if s.vdop != nil {
			vdop = *s.vdop
		}
		members = append(members, fusionMember{
			c:    Constellation(c),
			lat:  *s.latitude,
			lon:  *s.longitude,
			alt:  cloneFloat(s.altitude),
			hAcc: math.Max(math.Sqrt(hdop*hdop+pdop*pdop), nom),
			vAcc: math.Max(math.Sqrt(vdop*vdop+pdop*pdop), nom*verticalFactor),
		})
	}

	global := p.FusedAccuracy()

	switch len(members) {
	case 0:
		p.fused = nil
	case 1:
		m := members[0]
		h := math.Max(math.Max(m.hAcc, global), minHorizontalAccuracy)
		p.fused = &FusedPosition{
			Latitude:           m.lat,
			Longitude:          m.lon,
			Altitude:           altOrZero(m.alt),
			HorizontalAccuracy: h,
			VerticalAccuracy:   math.Max(m.vAcc, global*verticalFactor),
			Constellations:     []string{m.c.String()},
		}
	default:
		p.fused = p.fuseVarianceWeighted(members, global)
	}
}

// weightedCenter computes the reciprocal-weighted mean coordinates. Altitude
// is averaged with its own weight set over only the members that carry one;
// wvSum is zero when none does.
func weightedCenter(members []fusionMember) (lat, lon, wSum, alt, wvSum float64) {
	var latSum, lonSum, altSum float64
	for _, m := range members {
		w := 1 / (m.hAcc + dopGuard)
		latSum += m.lat * w
		lonSum += m.lon * w
		wSum += w
		if m.alt != nil {
			wv := 1 / (m.vAcc + dopGuard)
			altSum += *m.alt * wv
			wvSum += wv
		}
	}
	lat = latSum / wSum
	lon = lonSum / wSum
	if wvSum > 0 {
		alt = altSum / wvSum
	}
	return
}

func memberNames(members []fusionMember) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.c.String())
	}
	return names
}

// fuseWeightedMean is the simple multi-member combination: the output
// accuracies are the weighted means of the per-member combined accuracies,
// floored at the current global fused accuracy.
func (p *Parser) fuseWeightedMean(members []fusionMember) *FusedPosition {
	lat, lon, wSum, alt, wvSum := weightedCenter(members)

	var hAccSum, vAccSum float64
	for _, m := range members {
		hAccSum += m.hAcc / (m.hAcc + dopGuard)
		if m.alt != nil {
			vAccSum += m.vAcc / (m.vAcc + dopGuard)
		}
	}

	global := p.FusedAccuracy()
	hOut := math.Max(hAccSum/wSum, global)
	var vOut float64
	if wvSum > 0 {
		vOut = math.Max(vAccSum/wvSum, global*verticalFactor)
	} else {
		vOut = hOut * verticalFactor
	}

	return &FusedPosition{
		Latitude:           lat,
		Longitude:          lon,
		Altitude:           alt,
		HorizontalAccuracy: hOut,
		VerticalAccuracy:   vOut,
		Constellations:     memberNames(members),
	}
}

// fuseVarianceWeighted is the advanced multi-member combination: the output
// horizontal accuracy is the weighted spread of the member fixes around the
// fused point, converted to meters with the fixed equatorial approximation.
func (p *Parser) fuseVarianceWeighted(members []fusionMember, global float64) *FusedPosition {
	lat, lon, wSum, alt, wvSum := weightedCenter(members)

	var hVarSum float64
	for _, m := range members {
		w := 1 / (m.hAcc + dopGuard)
		dLat := m.lat - lat
		dLon := m.lon - lon
		hVarSum += w * (dLat*dLat + dLon*dLon)
	}
	hOut := math.Sqrt(hVarSum/wSum) * metersPerDegree
	hOut = math.Max(math.Max(hOut, global), minHorizontalAccuracy)

	var vOut float64
	if wvSum > 0 {
		var vVarSum float64
		for _, m := range members {
			if m.alt == nil {
				continue
			}
			wv := 1 / (m.vAcc + dopGuard)
			d := *m.alt - alt
			vVarSum += wv * d * d
		}
		vVar := vVarSum / wvSum
		if vVar == 0 {
			// Identical altitudes give no spread to measure; fall back to
			// the horizontal estimate.
			vOut = hOut * verticalFactor
		} else {
			vOut = math.Sqrt(vVar)
		}
		vOut = math.Max(vOut, global*verticalFactor)
	} else {
		vOut = math.Max(hOut*verticalFactor, global*verticalFactor)
	}

	return &FusedPosition{
		Latitude:           lat,
		Longitude:          lon,
		Altitude:           alt,
		HorizontalAccuracy: hOut,
		VerticalAccuracy:   vOut,
		Constellations:     memberNames(members),
	}
}

func altOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
