package app

import (
	"log"

	"github.com/golang/geo/s2"

	"github.com/relabs-tech/gnss_computer/internal/gnss"
)

// earthRadiusM is the mean Earth radius used to convert the angular distance
// between two fixes into meters.
const earthRadiusM = 6371010.0

// divergenceMeters returns the great-circle distance in meters between two
// latitude/longitude pairs in decimal degrees.
func divergenceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusM
}

// logDivergence reports how far each constellation's own fix sits from the
// fused position. Large divergences usually mean multipath or a stale fix on
// one constellation.
func logDivergence(snapshot gnss.Snapshot, fused gnss.FusedPosition) {
	for _, sys := range snapshot.Systems {
		if sys.Latitude == nil || sys.Longitude == nil {
			continue
		}
		d := divergenceMeters(fused.Latitude, fused.Longitude, *sys.Latitude, *sys.Longitude)
		log.Printf("divergence %s: %.2fm from fused position", sys.Constellation, d)
	}
}
