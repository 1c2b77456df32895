package enrichment

import (
	"math"

	"github.com/google/uuid"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
)

const (
	earthRadiusMeters = 6371000.0

	// metersPerDegreeLat is the approximate geodesic length of one degree of
	// latitude, used only to size grid cells for the index.
	metersPerDegreeLat = 111320.0

	// gridCellDegrees is the index bucket size (~55 km at the equator). The
	// query walks every cell the search radius touches, so correctness does
	// not depend on this value.
	gridCellDegrees = 0.5

	// lonRingCells is the number of longitude cells in one full ring.
	// Longitude cell indices are normalized into [0, lonRingCells) so the
	// scan wraps across the antimeridian.
	lonRingCells = int(360 / gridCellDegrees)
)

// HaversineMeters is the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Candidate is a nearby record with its distance from the subject.
type Candidate struct {
	Record         *domain.Record
	DistanceMeters float64
}

type cellKey struct {
	latCell int
	lonCell int
}

type indexedPoint struct {
	record *domain.Record
	lat    float64
	lon    float64
}

// ProximityFinder answers radius queries over a bounded candidate window.
// The window is bucketed into a lat/lon grid at construction so a query only
// scans the cells the radius covers instead of the whole window.
type ProximityFinder struct {
	cells map[cellKey][]indexedPoint
}

// NewProximityFinder indexes the candidate window. Records without a
// resolvable point location are skipped.
func NewProximityFinder(window []*domain.Record) *ProximityFinder {
	f := &ProximityFinder{cells: make(map[cellKey][]indexedPoint)}
	for _, rec := range window {
		lat, lon, ok := rec.Coordinates()
		if !ok {
			continue
		}
		key := cellOf(lat, lon)
		f.cells[key] = append(f.cells[key], indexedPoint{record: rec, lat: lat, lon: lon})
	}
	return f
}

func cellOf(lat, lon float64) cellKey {
	return cellKey{
		latCell: int(math.Floor(lat / gridCellDegrees)),
		lonCell: wrapLonCell(int(math.Floor(lon / gridCellDegrees))),
	}
}

func wrapLonCell(cell int) int {
	cell %= lonRingCells
	if cell < 0 {
		cell += lonRingCells
	}
	return cell
}

// FindNearby returns every indexed record within radiusMeters of the subject,
// excluding the subject itself. Subjects without point geometry yield an
// empty result, not an error. Results are unsorted; ordering is the caller's
// concern.
func (f *ProximityFinder) FindNearby(subject *domain.Record, radiusMeters float64) []Candidate {
	if f == nil || subject == nil || radiusMeters <= 0 {
		return nil
	}
	lat, lon, ok := subject.Coordinates()
	if !ok {
		return nil
	}
	return f.findNearbyPoint(subject.ID, lat, lon, radiusMeters)
}

func (f *ProximityFinder) findNearbyPoint(excludeID uuid.UUID, lat, lon, radiusMeters float64) []Candidate {
	latSpan := radiusMeters / metersPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180)
	lonSpan := latSpan
	if cosLat > 0.01 {
		lonSpan = radiusMeters / (metersPerDegreeLat * cosLat)
	} else {
		// Near the poles every longitude is close; scan the full ring.
		lonSpan = 360
	}

	minLatCell := int(math.Floor((lat - latSpan) / gridCellDegrees))
	maxLatCell := int(math.Floor((lat + latSpan) / gridCellDegrees))

	// Longitude cells wrap across the antimeridian: iterate a count of cells
	// from the western edge and normalize each index onto the ring, capped at
	// one full ring so no cell is visited twice.
	startLonCell := int(math.Floor((lon - lonSpan) / gridCellDegrees))
	lonCellCount := int(math.Floor((lon+lonSpan)/gridCellDegrees)) - startLonCell + 1
	if lonCellCount > lonRingCells {
		lonCellCount = lonRingCells
	}

	var out []Candidate
	for latCell := minLatCell; latCell <= maxLatCell; latCell++ {
		for i := 0; i < lonCellCount; i++ {
			lonCell := wrapLonCell(startLonCell + i)
			for _, p := range f.cells[cellKey{latCell: latCell, lonCell: lonCell}] {
				if p.record.ID == excludeID {
					continue
				}
				d := HaversineMeters(lat, lon, p.lat, p.lon)
				if d <= radiusMeters {
					out = append(out, Candidate{Record: p.record, DistanceMeters: d})
				}
			}
		}
	}
	return out
}
