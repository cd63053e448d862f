package gnss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedTwoConstellationScenario populates GPS and GLONASS with four satellites
// each, distinct DOPs, and distinct per-constellation fixes.
func feedTwoConstellationScenario(p *Parser) {
	p.Feed(gpsGSV)
	p.Feed(glonassGSV)
	p.Feed("$GNGSA,A,3,01,02,03,04,,,,,,,,,1.2,0.9,2.1*39")
	p.Feed("$GNGSA,A,3,67,68,69,77,,,,,,,,,1.8,1.1,1.4*3F")
	p.Feed("$GPGLL,4807.038,N,01131.000,E,123519,A*2D")
	p.Feed("$GLGLL,4808.000,N,01132.000,E,123520,A*22")
}

func TestFuseSimpleNoFix(t *testing.T) {
	p := NewParser()
	p.Feed(ggaSentence)
	p.FuseSimple()

	_, ok := p.Fused()
	assert.False(t, ok)
}

func TestFuseSimpleRequiresFourSatellites(t *testing.T) {
	p := NewParser()
	// Three satellites only.
	p.Feed("$GPGSV,1,1,03,01,40,083,41,02,17,308,43,03,13,172,42*XX")
	p.Feed("$GNGSA,A,3,01,02,03,,,,,,,,,,1.2,0.9,2.1*39")
	p.Feed(ggaSentence)
	p.FuseSimple()

	_, ok := p.Fused()
	assert.False(t, ok)
}

func TestFuseSimpleSingleton(t *testing.T) {
	p := NewParser()
	p.Feed(gpsGSV)
	p.Feed("$GNGSA,A,3,01,02,03,04,,,,,,,,,1.2,0.9,2.1*39")
	p.Feed(ggaSentence)
	p.FuseSimple()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.Equal(t, []string{"GPS"}, fused.Constellations)
	assert.InDelta(t, 48.1173, fused.Latitude, 0.0001)
	assert.InDelta(t, 11.5167, fused.Longitude, 0.0001)
	assert.InDelta(t, 545.4, fused.Altitude, 0.001)
	// max(HDOP*nominal, nominal) = max(1.8, 2.0).
	assert.InDelta(t, 2.0, fused.HorizontalAccuracy, 1e-9)
	// max(VDOP*nominal*1.5, nominal*1.5) = max(6.3, 3.0).
	assert.InDelta(t, 6.3, fused.VerticalAccuracy, 1e-9)
}

func TestFuseSimpleTwoConstellations(t *testing.T) {
	p := NewParser()
	feedTwoConstellationScenario(p)
	p.FuseSimple()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.Equal(t, []string{"GPS", "GLONASS"}, fused.Constellations)

	gpsLat, gloLat := 48.1173, 48.1333333
	assert.Greater(t, fused.Latitude, gpsLat)
	assert.Less(t, fused.Latitude, gloLat)
	// Weighted toward the lower-HDOP (GPS) fix.
	assert.Less(t, math.Abs(fused.Latitude-gpsLat), math.Abs(fused.Latitude-gloLat))

	gpsLon, gloLon := 11.5166667, 11.5333333
	assert.Greater(t, fused.Longitude, gpsLon)
	assert.Less(t, fused.Longitude, gloLon)

	assert.Greater(t, fused.HorizontalAccuracy, 0.0)
	// Floored at the global fused accuracy over the active pair.
	assert.GreaterOrEqual(t, fused.HorizontalAccuracy, p.FusedAccuracy())
	// No member carries altitude, so the vertical estimate tracks the
	// horizontal one.
	assert.InDelta(t, 1.5*fused.HorizontalAccuracy, fused.VerticalAccuracy, 1e-9)
}

func TestFuseSimpleIdempotent(t *testing.T) {
	p := NewParser()
	feedTwoConstellationScenario(p)

	p.FuseSimple()
	first, ok := p.Fused()
	require.True(t, ok)

	p.FuseSimple()
	second, ok := p.Fused()
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestFuseOnlyOnExplicitInvocation(t *testing.T) {
	p := NewParser()
	feedTwoConstellationScenario(p)

	_, ok := p.Fused()
	assert.False(t, ok, "no fusion before explicit invocation")

	p.FuseSimple()
	before, ok := p.Fused()
	require.True(t, ok)

	// New sentences must not touch the stored snapshot.
	p.Feed("$GPGLL,4900.000,N,01200.000,E,123521,A*2D")
	after, ok := p.Fused()
	require.True(t, ok)
	assert.Equal(t, before, after)

	p.FuseSimple()
	moved, ok := p.Fused()
	require.True(t, ok)
	assert.NotEqual(t, before.Latitude, moved.Latitude)
}

func TestFuseSimpleZeroHDOPGuard(t *testing.T) {
	p := NewParser()
	p.Feed(gpsGSV)
	p.Feed("$GNGSA,A,3,01,02,03,04,,,,,,,,,0.0,0.0,0.0*39")
	p.Feed(ggaSentence)
	p.SetNominalAccuracy("GPS", 0)
	p.FuseSimple()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.False(t, math.IsNaN(fused.Latitude))
	assert.False(t, math.IsInf(fused.HorizontalAccuracy, 0))
}

func TestFuseAdvancedNoFix(t *testing.T) {
	p := NewParser()
	p.FuseAdvanced()

	_, ok := p.Fused()
	assert.False(t, ok)
}

func TestFuseAdvancedTwoConstellations(t *testing.T) {
	p := NewParser()
	feedTwoConstellationScenario(p)
	p.FuseAdvanced()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.Equal(t, []string{"GPS", "GLONASS"}, fused.Constellations)

	assert.Greater(t, fused.Latitude, 48.1173)
	assert.Less(t, fused.Latitude, 48.1333333)

	// Spread of the member fixes around the fused point, in meters, floored
	// at the global accuracy and one meter.
	assert.GreaterOrEqual(t, fused.HorizontalAccuracy, p.FusedAccuracy())
	assert.GreaterOrEqual(t, fused.HorizontalAccuracy, 1.0)
	assert.InDelta(t, 1.5*fused.HorizontalAccuracy, fused.VerticalAccuracy, 1e-9)
}

func TestFuseAdvancedIdenticalFixes(t *testing.T) {
	p := NewParser()
	p.Feed(gpsGSV)
	p.Feed(glonassGSV)
	p.Feed("$GNGSA,A,3,01,02,03,04,,,,,,,,,1.2,0.9,2.1*39")
	p.Feed("$GNGSA,A,3,67,68,69,77,,,,,,,,,1.8,1.1,1.4*3F")
	// One fix sentence propagates identical coordinates and altitudes into
	// both constellations.
	p.Feed(ggaSentence)
	p.FuseAdvanced()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, fused.Latitude, 0.0001)

	// Zero spread: horizontal collapses to the floor, vertical variance is
	// exactly zero and falls back to 1.5x horizontal.
	assert.InDelta(t, math.Max(p.FusedAccuracy(), 1.0), fused.HorizontalAccuracy, 1e-9)
	assert.InDelta(t, 1.5*fused.HorizontalAccuracy, fused.VerticalAccuracy, 1e-9)
}

func TestFuseAdvancedIdempotent(t *testing.T) {
	p := NewParser()
	feedTwoConstellationScenario(p)

	p.FuseAdvanced()
	first, ok := p.Fused()
	require.True(t, ok)

	p.FuseAdvanced()
	second, ok := p.Fused()
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestFuseAdvancedSingleton(t *testing.T) {
	p := NewParser()
	p.Feed(gpsGSV)
	p.Feed("$GNGSA,A,3,01,02,03,04,,,,,,,,,1.2,0.9,2.1*39")
	p.Feed(ggaSentence)
	p.FuseAdvanced()

	fused, ok := p.Fused()
	require.True(t, ok)
	assert.Equal(t, []string{"GPS"}, fused.Constellations)
	assert.InDelta(t, 48.1173, fused.Latitude, 0.0001)
	assert.InDelta(t, 545.4, fused.Altitude, 0.001)
	// Combined DOP sqrt(0.9^2+1.2^2)=1.5 floored by the nominal 2.0; the
	// global floor (GPS alone: 2.0) and the 1-meter minimum do not raise it.
	assert.InDelta(t, 2.0, fused.HorizontalAccuracy, 1e-9)
	assert.GreaterOrEqual(t, fused.VerticalAccuracy, fused.HorizontalAccuracy)
}
