package geojson

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	kml "github.com/twpayne/go-kml"
)

// polyAlpha is the fill opacity of zone polygons.
const polyAlpha = 0x80

var classifications = []domain.Classification{
	domain.ClassInfo,
	domain.ClassLow,
	domain.ClassMedium,
	domain.ClassHigh,
}

// WriteKML renders the snapshot as a KML document with one placemark per
// zone, styled by its classification color.
func WriteKML(w io.Writer, snap domain.Snapshot) error {
	styles := make(map[string]*kml.SharedElement, len(classifications))
	children := make([]kml.Element, 0, len(classifications)+len(snap.Zones)+1)
	children = append(children, kml.Name("Risk zones "+snap.ID))

	for _, c := range classifications {
		s := zoneStyle(c)
		styles[c.Level] = s
		children = append(children, s)
	}

	for _, z := range snap.Zones {
		s, ok := styles[z.Classification.Level]
		if !ok {
			s = zoneStyle(z.Classification)
			styles[z.Classification.Level] = s
			children = append(children, s)
		}
		children = append(children, placemark(z, s))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

func zoneStyle(c domain.Classification) *kml.SharedElement {
	rgba := parseHexColor(c.Color)
	line := rgba
	line.A = 0xff
	fill := rgba
	fill.A = polyAlpha
	return kml.SharedStyle("zone-"+strings.ToLower(c.Level),
		kml.LineStyle(kml.Color(line), kml.Width(1.5)),
		kml.PolyStyle(kml.Color(fill)),
	)
}

func placemark(z domain.RiskZone, style *kml.SharedElement) kml.Element {
	coords := make([]kml.Coordinate, len(z.Polygon))
	for i, p := range z.Polygon {
		coords[i] = kml.Coordinate{Lon: p[0], Lat: p[1]}
	}
	desc := fmt.Sprintf("%s\nSafety score: %d (%s)\nRadius: %d m",
		z.Description, z.SafetyScore, z.Classification.Level, z.Radius)

	return kml.Placemark(
		kml.Name(z.Name),
		kml.Description(desc),
		kml.TimeStamp(kml.When(z.Time)),
		kml.StyleURL(style.URL()),
		kml.Polygon(
			kml.OuterBoundaryIs(
				kml.LinearRing(kml.Coordinates(coords...)),
			),
		),
	)
}

// parseHexColor reads "#RRGGBB"; anything else renders grey.
func parseHexColor(s string) color.RGBA {
	grey := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return grey
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return grey
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
