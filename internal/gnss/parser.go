package gnss

import (
	"math"
	"strconv"
	"strings"
)

// Parser decodes positioning sentences from a multi-constellation receiver
// and maintains the global and per-constellation state the fusion engine
// reads. Sentences are comma-delimited NMEA 0183 text; decoding is lenient:
// a field that is absent or fails to parse leaves just that value
// unset, and a sentence whose identifier is not recognized is dropped whole
// without any signal to the caller. Checksums are never validated here.
//
// A Parser is not safe for concurrent use. Callers feeding sentences from one
// goroutine while reading state from another must synchronize externally.
type Parser struct {
	time          string
	date          string
	latitude      *float64
	longitude     *float64
	altitude      *float64
	fixQuality    *int
	numSatellites *int
	speedKnots    *float64
	trackAngle    *float64

	systems [constellationCount]systemState

	// Explicitly configured (or default-computed) global accuracy. Serves as
	// the FusedAccuracy fallback when no constellation is active and as the
	// floor inside the fusion engine.
	globalAccuracy float64

	fused *FusedPosition
}

// NewParser returns a parser with all four constellations initialized and
// nominal accuracies at their defaults.
func NewParser() *Parser {
	p := &Parser{}
	sum := 0.0
	for c := range p.systems {
		p.systems[c].satellitesInfo = make(map[int]SatelliteInfo)
		p.systems[c].nominalAccuracy = defaultNominalAccuracy[c]
		sum += 1 / (defaultNominalAccuracy[c] * defaultNominalAccuracy[c])
	}
	p.globalAccuracy = 1 / math.Sqrt(sum)
	return p
}

// Feed decodes one complete, newline-stripped sentence, optionally prefixed
// with a single '$'. Unrecognized identifiers are ignored.
func (p *Parser) Feed(line string) {
	line = strings.TrimPrefix(line, "$")
	parts := strings.Split(line, ",")
	if len(parts[0]) < 5 {
		return
	}
	switch parts[0][:5] {
	case "GNGGA":
		p.updateGGA(parts)
	case "GNRMC":
		p.updateRMC(parts)
	case "GNVTG":
		p.updateVTG(parts)
	case "GNGSA":
		p.updateGSA(parts)
	case "GPGSV":
		p.updateGSV(parts, GPS)
	case "GLGSV":
		p.updateGSV(parts, GLONASS)
	case "GAGSV":
		p.updateGSV(parts, GALILEO)
	case "BDGSV":
		p.updateGSV(parts, BEIDOU)
	case "GPGLL":
		p.updateGLL(parts, GPS)
	case "GLGLL":
		p.updateGLL(parts, GLONASS)
	case "GAGLL":
		p.updateGLL(parts, GALILEO)
	case "BDGLL":
		p.updateGLL(parts, BEIDOU)
	}
}

// Snapshot returns a deep copy of the current state, including the last fused
// position if one has been computed.
func (p *Parser) Snapshot() Snapshot {
	snap := Snapshot{
		Time:          p.time,
		Date:          p.date,
		Latitude:      cloneFloat(p.latitude),
		Longitude:     cloneFloat(p.longitude),
		Altitude:      cloneFloat(p.altitude),
		FixQuality:    cloneInt(p.fixQuality),
		NumSatellites: cloneInt(p.numSatellites),
		SpeedKnots:    cloneFloat(p.speedKnots),
		TrackAngle:    cloneFloat(p.trackAngle),
		FusedAccuracy: p.FusedAccuracy(),
	}
	for c := range p.systems {
		snap.Systems = append(snap.Systems, p.systems[c].snapshot(Constellation(c)))
	}
	if f, ok := p.Fused(); ok {
		snap.Fused = &f
	}
	return snap
}

// Fused returns a copy of the last fused-position snapshot. ok is false when
// the most recent fusion found no eligible constellation, or fusion has not
// been invoked yet.
func (p *Parser) Fused() (FusedPosition, bool) {
	if p.fused == nil {
		return FusedPosition{}, false
	}
	f := *p.fused
	f.Constellations = append([]string(nil), p.fused.Constellations...)
	return f, true
}

// field returns the i'th comma-delimited field, or "" when the sentence is
// too short.
func field(parts []string, i int) string {
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}

func parseOptFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptInt(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// parseCoordinate converts a DDMM.mmmm (latitude) or DDDMM.mmmm (longitude)
// field plus hemisphere letter into signed decimal degrees. A missing or
// unparsable value or hemisphere yields unset; it never fails the sentence.
func parseCoordinate(value, hemisphere string) *float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || hemisphere == "" {
		return nil
	}
	deg := math.Floor(v / 100)
	min := math.Mod(v, 100)
	dec := deg + min/60
	if hemisphere == "S" || hemisphere == "W" {
		dec = -dec
	}
	return &dec
}

// propagatePosition copies a freshly decoded fix into every constellation
// that currently has satellites in view and clears coordinates everywhere
// else, so no constellation retains a stale position. withAltitude is set for
// fix sentences, which carry altitude; course-type sentences leave any stored
// altitude alone.
func (p *Parser) propagatePosition(lat, lon, alt *float64, withAltitude bool) {
	for c := range p.systems {
		p.propagateTo(Constellation(c), lat, lon, alt, withAltitude)
	}
}

func (p *Parser) propagateTo(c Constellation, lat, lon, alt *float64, withAltitude bool) {
	s := &p.systems[c]
	if len(s.satellitesInfo) > 0 {
		s.latitude = cloneFloat(lat)
		s.longitude = cloneFloat(lon)
		if withAltitude {
			s.altitude = cloneFloat(alt)
		}
		return
	}
	s.latitude = nil
	s.longitude = nil
	if withAltitude {
		s.altitude = nil
	}
}

// updateGGA decodes a position-fix sentence:
// GNGGA,time,lat,N/S,lon,E/W,quality,numSat,hdop,alt,M,geoid,M,age,station
func (p *Parser) updateGGA(parts []string) {
	lat := parseCoordinate(field(parts, 2), field(parts, 3))
	lon := parseCoordinate(field(parts, 4), field(parts, 5))
	alt := parseOptFloat(field(parts, 9))

	p.time = field(parts, 1)
	p.latitude = lat
	p.longitude = lon
	p.fixQuality = parseOptInt(field(parts, 6))
	p.numSatellites = parseOptInt(field(parts, 7))
	p.altitude = alt

	p.propagatePosition(lat, lon, alt, true)
}

// updateRMC decodes a recommended-minimum sentence:
// GNRMC,time,status,lat,N/S,lon,E/W,speed,track,date,...
func (p *Parser) updateRMC(parts []string) {
	lat := parseCoordinate(field(parts, 3), field(parts, 4))
	lon := parseCoordinate(field(parts, 5), field(parts, 6))

	p.time = field(parts, 1)
	p.latitude = lat
	p.longitude = lon
	p.speedKnots = parseOptFloat(field(parts, 7))
	p.trackAngle = parseOptFloat(field(parts, 8))
	p.date = field(parts, 9)

	p.propagatePosition(lat, lon, nil, false)
}

// updateVTG decodes a course/speed sentence; only the knots field is used:
// GNVTG,track,T,magTrack,M,speedKnots,N,speedKmh,K
func (p *Parser) updateVTG(parts []string) {
	p.speedKnots = parseOptFloat(field(parts, 5))
}

// updateGSA decodes an active-satellites sentence. The twelve PRN fields are
// classified by numeric range into their constellations; the DOP triple that
// follows applies only to the constellations that received at least one PRN
// from this sentence, so a GPS-only GSA leaves GLONASS DOPs untouched.
func (p *Parser) updateGSA(parts []string) {
	var touched [constellationCount]bool
	for i := 3; i <= 14; i++ {
		prn, err := strconv.Atoi(field(parts, i))
		if err != nil {
			continue
		}
		c, ok := constellationForPRN(prn)
		if !ok {
			continue
		}
		p.systems[c].satellitesUsed = append(p.systems[c].satellitesUsed, prn)
		touched[c] = true
	}

	// Some receivers pad or shift the tail columns, so scan for the first
	// three numeric fields after the PRN window: PDOP, HDOP, VDOP in order.
	var pdop, hdop, vdop *float64
	found := 0
	for i := 15; i < len(parts) && found < 3; i++ {
		f, _, _ := strings.Cut(field(parts, i), "*")
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		switch found {
		case 0:
			pdop = &v
		case 1:
			hdop = &v
		case 2:
			vdop = &v
		}
		found++
	}

	for c := range p.systems {
		if !touched[c] {
			continue
		}
		p.systems[c].pdop = cloneFloat(pdop)
		p.systems[c].hdop = cloneFloat(hdop)
		p.systems[c].vdop = cloneFloat(vdop)
	}
}

// updateGSV decodes a satellites-in-view sentence for one constellation:
// xxGSV,totalMsgs,msgNum,satsInView,(prn,elev,azimuth,snr)*1..4
// Each complete four-field group inserts or overwrites one satellite entry.
func (p *Parser) updateGSV(parts []string, c Constellation) {
	s := &p.systems[c]
	for i := 4; i+3 < len(parts); i += 4 {
		prn, err := strconv.Atoi(field(parts, i))
		if err != nil {
			continue
		}
		// The last SNR field carries the checksum suffix.
		snr, _, _ := strings.Cut(field(parts, i+3), "*")
		s.satellitesInfo[prn] = SatelliteInfo{
			PRN:       prn,
			Elevation: parseOptInt(field(parts, i+1)),
			Azimuth:   parseOptInt(field(parts, i+2)),
			SNR:       parseOptInt(snr),
		}
	}
}

// updateGLL decodes a geographic-position sentence targeted at one
// constellation: xxGLL,lat,N/S,lon,E/W,time,status
func (p *Parser) updateGLL(parts []string, c Constellation) {
	lat := parseCoordinate(field(parts, 1), field(parts, 2))
	lon := parseCoordinate(field(parts, 3), field(parts, 4))

	p.latitude = lat
	p.longitude = lon

	p.propagateTo(c, lat, lon, nil, false)
}
