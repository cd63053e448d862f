package gnss

import "sort"

// SatelliteInfo describes a single tracked satellite as last reported by a
// satellites-in-view sentence. Entries are keyed by PRN and overwritten in
// place; there is no aging, so a satellite stays tracked until a later report
// replaces it.
type SatelliteInfo struct {
	PRN       int  `json:"prn"`
	Elevation *int `json:"elevation,omitempty"` // degrees
	Azimuth   *int `json:"azimuth,omitempty"`   // degrees, 0-359
	SNR       *int `json:"snr,omitempty"`       // dBHz
}

// systemState is the mutable per-constellation state the decoders write.
type systemState struct {
	// PRNs named by active-satellites sentences, appended as reported
	// (repeats across sentences are kept).
	satellitesUsed []int
	satellitesInfo map[int]SatelliteInfo

	pdop *float64
	hdop *float64
	vdop *float64

	latitude  *float64
	longitude *float64
	altitude  *float64

	nominalAccuracy float64 // meters
}

// active reports whether this constellation currently contributes a usable
// fix: satellites in view plus decoded coordinates.
func (s *systemState) active() bool {
	return len(s.satellitesInfo) > 0 && s.latitude != nil && s.longitude != nil
}

// SystemSnapshot is a read-only copy of one constellation's state, suitable
// for JSON and MQTT.
type SystemSnapshot struct {
	Constellation   string          `json:"constellation"`
	SatellitesUsed  []int           `json:"satellites_used,omitempty"`
	Satellites      []SatelliteInfo `json:"satellites,omitempty"`
	PDOP            *float64        `json:"pdop,omitempty"`
	HDOP            *float64        `json:"hdop,omitempty"`
	VDOP            *float64        `json:"vdop,omitempty"`
	Latitude        *float64        `json:"lat,omitempty"`
	Longitude       *float64        `json:"lon,omitempty"`
	Altitude        *float64        `json:"alt,omitempty"`
	NominalAccuracy float64         `json:"nominal_accuracy_m"`
}

// Snapshot is a read-only copy of the full parser state.
type Snapshot struct {
	Time          string           `json:"time,omitempty"`
	Date          string           `json:"date,omitempty"`
	Latitude      *float64         `json:"lat,omitempty"`
	Longitude     *float64         `json:"lon,omitempty"`
	Altitude      *float64         `json:"alt,omitempty"`
	FixQuality    *int             `json:"fix_quality,omitempty"`
	NumSatellites *int             `json:"num_satellites,omitempty"`
	SpeedKnots    *float64         `json:"speed_knots,omitempty"`
	TrackAngle    *float64         `json:"track_deg,omitempty"`
	FusedAccuracy float64          `json:"fused_accuracy_m"`
	Systems       []SystemSnapshot `json:"systems"`
	Fused         *FusedPosition   `json:"fused,omitempty"`
}

// FusedPosition is the combined estimate produced by the fusion engine from
// the eligible per-constellation fixes.
type FusedPosition struct {
	Latitude           float64  `json:"lat"`
	Longitude          float64  `json:"lon"`
	Altitude           float64  `json:"alt"`
	HorizontalAccuracy float64  `json:"h_acc_m"`
	VerticalAccuracy   float64  `json:"v_acc_m"`
	Constellations     []string `json:"constellations"`
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (s *systemState) snapshot(c Constellation) SystemSnapshot {
	out := SystemSnapshot{
		Constellation:   c.String(),
		PDOP:            cloneFloat(s.pdop),
		HDOP:            cloneFloat(s.hdop),
		VDOP:            cloneFloat(s.vdop),
		Latitude:        cloneFloat(s.latitude),
		Longitude:       cloneFloat(s.longitude),
		Altitude:        cloneFloat(s.altitude),
		NominalAccuracy: s.nominalAccuracy,
	}
	if len(s.satellitesUsed) > 0 {
		out.SatellitesUsed = append([]int(nil), s.satellitesUsed...)
	}
	for _, sat := range s.satellitesInfo {
		sat.Elevation = cloneInt(sat.Elevation)
		sat.Azimuth = cloneInt(sat.Azimuth)
		sat.SNR = cloneInt(sat.SNR)
		out.Satellites = append(out.Satellites, sat)
	}
	sort.Slice(out.Satellites, func(i, j int) bool {
		return out.Satellites[i].PRN < out.Satellites[j].PRN
	})
	return out
}
