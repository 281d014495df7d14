// Package geo implements the WGS-84 geodesy and idealized circular-orbit
// kinematics used to turn a constellation geometry and elapsed time into a
// ground-track sample.
package geo

import "math"

const (
	// EquatorialRadiusKm is the WGS-84 semi-major axis.
	EquatorialRadiusKm = 6378.137
	// PolarRadiusKm is the WGS-84 semi-minor axis.
	PolarRadiusKm = 6356.752314245

	// EarthMuKm3S2 is Earth's standard gravitational parameter (GM), used
	// to derive a circular orbit's period from its semi-major axis.
	EarthMuKm3S2 = 398600.4418

	// EarthRotationRateRadS is Earth's sidereal rotation rate, used to
	// drift a satellite's ground-track longitude westward over time as
	// the planet turns beneath an inertially-fixed orbital plane.
	EarthRotationRateRadS = 7.2921159e-5

	// surfaceGravityMS2 is standard gravity, used by the tangential
	// companion-point method's orbital speed approximation.
	surfaceGravityMS2 = 9.80665

	// companionOffsetRad is how far ahead, in true anomaly, the
	// tangential companion point used to derive velocity is placed.
	companionOffsetRad = 5 * math.Pi / 180
)

var (
	flattening  = (EquatorialRadiusKm - PolarRadiusKm) / EquatorialRadiusKm
	eccentricSq = flattening * (2 - flattening)
)

// LLA is a geodetic position: latitude and longitude in degrees, altitude
// in kilometers above the WGS-84 ellipsoid.
type LLA struct {
	LatDeg float64
	LonDeg float64
	AltKm  float64
}

// ECEF is an Earth-centered, Earth-fixed Cartesian position in kilometers.
type ECEF struct {
	X, Y, Z float64
}

// LLAToECEF converts a geodetic position to Earth-centered, Earth-fixed
// Cartesian coordinates using the full WGS-84 ellipsoid model.
func LLAToECEF(p LLA) ECEF {
	lat := p.LatDeg * math.Pi / 180
	lon := p.LonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)

	n := EquatorialRadiusKm / math.Sqrt(1-eccentricSq*sinLat*sinLat)

	return ECEF{
		X: (n + p.AltKm) * cosLat * math.Cos(lon),
		Y: (n + p.AltKm) * cosLat * math.Sin(lon),
		Z: (n*(1-eccentricSq) + p.AltKm) * sinLat,
	}
}

// ECEFToLLA converts Earth-centered, Earth-fixed Cartesian coordinates back
// to a geodetic position using Bowring's iterative method. Longitude is
// always returned wrapped into (-180, 180].
func ECEFToLLA(p ECEF) LLA {
	r := math.Hypot(p.X, p.Y)
	lon := math.Atan2(p.Y, p.X)

	// Initial latitude guess assumes a sphere, then refine.
	lat := math.Atan2(p.Z, r*(1-eccentricSq))
	var n float64
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n = EquatorialRadiusKm / math.Sqrt(1-eccentricSq*sinLat*sinLat)
		lat = math.Atan2(p.Z+eccentricSq*n*sinLat, r)
	}

	alt := r/math.Cos(lat) - n

	return LLA{
		LatDeg: lat * 180 / math.Pi,
		LonDeg: WrapLonDeg(lon * 180 / math.Pi),
		AltKm:  alt,
	}
}

// WrapLonDeg normalizes a longitude in degrees into (-180, 180].
func WrapLonDeg(lonDeg float64) float64 {
	wrapped := math.Mod(lonDeg+180, 360)
	if wrapped <= 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// Geometry describes one constellation's orbital shape, shared by every
// plane and ordinal within it.
type Geometry struct {
	NumPlanes      int
	NumSats        int // satellites per plane
	InclinationDeg float64
	StartLonDeg    float64 // ascending-node longitude of plane 1 at t=0
	AltitudeKm     float64
}

// Period returns the orbital period for a circular orbit at the configured
// altitude, derived from Earth's gravitational parameter.
func (g Geometry) Period() float64 {
	a := EquatorialRadiusKm + g.AltitudeKm
	return 2 * math.Pi * math.Sqrt(a*a*a/EarthMuKm3S2)
}

// OrbitPosition computes the idealized ground-track position of satellite
// (plane, ordinal) — both 1-based — at elapsedSec seconds after the
// constellation's start time. Planes are evenly spaced in ascending-node
// longitude; satellites are evenly spaced in mean anomaly within a plane.
func OrbitPosition(plane, ordinal int, elapsedSec float64, g Geometry) LLA {
	theta := orbitTheta(ordinal, elapsedSec, g)
	return orbitPositionAtTheta(plane, theta, elapsedSec, g)
}

// OrbitVelocity derives the ECEF velocity vector (km/s) of satellite
// (plane, ordinal) at the same instant OrbitPosition reports, via the
// tangential companion-point method: a point a few degrees further along
// the orbit is projected through the same plane tilt and Earth-rotation
// drift, and the unit vector from the sample to that companion, scaled by
// orbital speed, approximates the instantaneous velocity.
func OrbitVelocity(plane, ordinal int, elapsedSec float64, g Geometry) (vxKmS, vyKmS, vzKmS float64) {
	theta := orbitTheta(ordinal, elapsedSec, g)

	pos := orbitPositionAtTheta(plane, theta, elapsedSec, g)
	companion := orbitPositionAtTheta(plane, theta+companionOffsetRad, elapsedSec, g)

	p1, p2 := LLAToECEF(pos), LLAToECEF(companion)
	dx, dy, dz := p2.X-p1.X, p2.Y-p1.Y, p2.Z-p1.Z
	mag := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if mag == 0 {
		return 0, 0, 0
	}

	v := orbitalSpeedKmS(g.AltitudeKm)
	return dx / mag * v, dy / mag * v, dz / mag * v
}

// orbitTheta returns satellite (ordinal)'s true anomaly at elapsedSec,
// evenly spacing satellites within a plane in mean anomaly.
func orbitTheta(ordinal int, elapsedSec float64, g Geometry) float64 {
	meanMotion := 2 * math.Pi / g.Period()
	phase := 2 * math.Pi * float64(ordinal-1) / float64(g.NumSats)
	return meanMotion*elapsedSec + phase
}

// orbitPositionAtTheta projects a satellite at orbital phase theta through
// the plane's inclination tilt, the plane's ascending-node longitude
// offset, and Earth's rotation drift at elapsedSec.
func orbitPositionAtTheta(plane int, theta, elapsedSec float64, g Geometry) LLA {
	incRad := g.InclinationDeg * math.Pi / 180

	// Ascending-node longitude offset for this plane, evenly spaced.
	planeLonOffset := 360 * float64(plane-1) / float64(g.NumPlanes)

	a := EquatorialRadiusKm + g.AltitudeKm
	xOrb := a * math.Cos(theta)
	yOrb := a * math.Sin(theta)

	// Tilt the orbital plane by inclination about the ascending-node axis.
	x := xOrb
	y := yOrb * math.Cos(incRad)
	z := yOrb * math.Sin(incRad)

	// The orbital plane's node is inertially fixed; Earth rotates beneath
	// it, so the ground track drifts west by the planet's rotation angle.
	earthRot := EarthRotationRateRadS * elapsedSec
	cosRot, sinRot := math.Cos(earthRot), math.Sin(earthRot)
	xFixed := x*cosRot + y*sinRot
	yFixed := -x*sinRot + y*cosRot

	r := math.Hypot(xFixed, yFixed)
	lat := math.Atan2(z, r) * 180 / math.Pi
	lon := math.Atan2(yFixed, xFixed)*180/math.Pi + g.StartLonDeg + planeLonOffset

	return LLA{
		LatDeg: lat,
		LonDeg: WrapLonDeg(lon),
		AltKm:  g.AltitudeKm,
	}
}

// orbitalSpeedKmS approximates orbital speed at the given altitude via the
// formula v = sqrt(g*(alt+Re)*1000) / 1000, in km/s.
func orbitalSpeedKmS(altKm float64) float64 {
	return math.Sqrt(surfaceGravityMS2*(altKm+EquatorialRadiusKm)*1000) / 1000
}
