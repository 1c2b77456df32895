package domain

import (
	"testing"

	"gorm.io/datatypes"
)

func TestParseCategory(t *testing.T) {
	if got := ParseCategory(" weather "); got != CategoryWeather {
		t.Fatalf("ParseCategory(weather) = %q", got)
	}
	if got := ParseCategory("WILDLIFE"); got != CategoryWildlife {
		t.Fatalf("ParseCategory(WILDLIFE) = %q", got)
	}
	if got := ParseCategory("plasma"); got != "" {
		t.Fatalf("ParseCategory(plasma) = %q, want empty", got)
	}
}

func TestRecordCoordinates(t *testing.T) {
	lat, lon := 39.3, -76.61

	r := &Record{Lat: &lat, Lon: &lon}
	gotLat, gotLon, ok := r.Coordinates()
	if !ok || gotLat != lat || gotLon != lon {
		t.Fatalf("columns: (%f, %f, %v)", gotLat, gotLon, ok)
	}

	r = &Record{Geometry: datatypes.JSON([]byte(`{"type":"Point","coordinates":[-76.61,39.3]}`))}
	gotLat, gotLon, ok = r.Coordinates()
	if !ok || gotLat != 39.3 || gotLon != -76.61 {
		t.Fatalf("geojson point: (%f, %f, %v)", gotLat, gotLon, ok)
	}

	r = &Record{Geometry: datatypes.JSON([]byte(`{"type":"Polygon","coordinates":[]}`))}
	if _, _, ok := r.Coordinates(); ok {
		t.Fatalf("polygon resolved to a point")
	}

	r = &Record{}
	if _, _, ok := r.Coordinates(); ok {
		t.Fatalf("empty record resolved to a point")
	}
}
