package gnss

import "math"

// NominalAccuracy returns the assumed standalone accuracy in meters for one
// constellation.
func (p *Parser) NominalAccuracy(c Constellation) float64 {
	if c < 0 || c >= constellationCount {
		return 0
	}
	return p.systems[c].nominalAccuracy
}

// SetNominalAccuracy adjusts the assumed standalone accuracy for the named
// constellation. An unknown name is reported as failure rather than
// panicking or silently succeeding.
func (p *Parser) SetNominalAccuracy(name string, meters float64) bool {
	c, ok := ConstellationFromName(name)
	if !ok {
		return false
	}
	p.systems[c].nominalAccuracy = meters
	return true
}

// FusedAccuracy combines the nominal accuracies of the currently active
// constellations (satellites in view plus decoded coordinates) by
// root-sum-of-squares: 1 / sqrt(sum(1/acc_i^2)). With no active constellation
// the stored global value is returned unchanged.
func (p *Parser) FusedAccuracy() float64 {
	sum := 0.0
	active := 0
	for c := range p.systems {
		s := &p.systems[c]
		if !s.active() {
			continue
		}
		sum += 1 / (s.nominalAccuracy * s.nominalAccuracy)
		active++
	}
	if active == 0 {
		return p.globalAccuracy
	}
	return 1 / math.Sqrt(sum)
}

// SetFusedAccuracy overrides the global accuracy. The override becomes the
// FusedAccuracy fallback when no constellation is active and the floor used
// inside the fusion engine.
func (p *Parser) SetFusedAccuracy(meters float64) {
	p.globalAccuracy = meters
}
