package index

import (
	"strconv"

	"github.com/blevesearch/bleve/v2"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

// SpatialPoint is a simple lon/lat pair, the only shape the engine's
// "circle"/"bounding-box" strategies need (source spec §4.3 "optional
// spatial shape + strategy"). WKT polygons and other richer shapes are not
// supported.
type SpatialPoint struct {
	Longitude float64
	Latitude  float64
}

// SpatialCircleShape is a center point plus radius, selected with
// SpatialStrategy "circle".
type SpatialCircleShape struct {
	Center      SpatialPoint
	RadiusMeters float64
}

// SpatialBoundingBoxShape selects SpatialStrategy "bbox".
type SpatialBoundingBoxShape struct {
	TopLeft     SpatialPoint
	BottomRight SpatialPoint
}

// buildSpatialQuery constructs the geo sub-query to AND against the main
// query (source spec §4.3 step 4 "wrap with spatial query if
// SpatialIndexQuery applies (boolean MUST + MUST)").
func buildSpatialQuery(q *Query) bleveQuery.Query {
	switch shape := q.SpatialShape.(type) {
	case SpatialCircleShape:
		radiusMiles := shape.RadiusMeters / 1609.344
		distance := formatDistance(radiusMiles)
		gq := bleve.NewGeoDistanceQuery(shape.Center.Longitude, shape.Center.Latitude, distance)
		gq.SetField(q.SpatialField)
		return gq
	case SpatialBoundingBoxShape:
		gq := bleve.NewGeoBoundingBoxQuery(
			shape.TopLeft.Longitude, shape.TopLeft.Latitude,
			shape.BottomRight.Longitude, shape.BottomRight.Latitude,
		)
		gq.SetField(q.SpatialField)
		return gq
	default:
		return nil
	}
}

func formatDistance(miles float64) string {
	return strconv.FormatFloat(miles, 'f', 3, 64) + "mi"
}
