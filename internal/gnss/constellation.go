package gnss

// Constellation identifies one of the four satellite navigation systems the
// receiver tracks independently. The set is closed; using a small enum keyed
// into fixed-size arrays removes the "unknown constellation" failure mode
// everywhere except name lookups from config or the wire.
type Constellation int

const (
	GPS Constellation = iota
	GLONASS
	GALILEO
	BEIDOU

	constellationCount
)

var constellationNames = [constellationCount]string{
	GPS:     "GPS",
	GLONASS: "GLONASS",
	GALILEO: "GALILEO",
	BEIDOU:  "BEIDOU",
}

// Default standalone accuracy per constellation, meters.
var defaultNominalAccuracy = [constellationCount]float64{
	GPS:     2.0,
	GLONASS: 4.0,
	GALILEO: 3.0,
	BEIDOU:  3.0,
}

func (c Constellation) String() string {
	if c < 0 || c >= constellationCount {
		return "UNKNOWN"
	}
	return constellationNames[c]
}

// Constellations returns every tracked constellation in fixed order.
func Constellations() []Constellation {
	return []Constellation{GPS, GLONASS, GALILEO, BEIDOU}
}

// ConstellationFromName resolves a constellation name such as "GLONASS".
func ConstellationFromName(name string) (Constellation, bool) {
	for i, n := range constellationNames {
		if n == name {
			return Constellation(i), true
		}
	}
	return 0, false
}

// constellationForPRN classifies a PRN from an active-satellites sentence by
// numeric range. PRNs outside every range belong to no tracked constellation
// and are discarded by the caller.
func constellationForPRN(prn int) (Constellation, bool) {
	switch {
	case prn >= 1 && prn <= 32:
		return GPS, true
	case prn >= 65 && prn <= 96:
		return GLONASS, true
	case prn >= 201 && prn <= 236:
		return BEIDOU, true
	case prn >= 301 && prn <= 336:
		return GALILEO, true
	}
	return 0, false
}
