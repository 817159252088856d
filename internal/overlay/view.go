package overlay

import (
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
)

const (
	dateLayout = "02 Jan 2006"
	timeLayout = "03:04 PM"
)

// View is the rendered location summary shown by the display.
type View struct {
	Address   geotag.Address `json:"address"`
	Lat       float64        `json:"lat"`
	Lon       float64        `json:"lon"`
	LatText   string         `json:"latText"`
	LonText   string         `json:"lonText"`
	Geohash   string         `json:"geohash"`
	Date      string         `json:"date"`
	Time      string         `json:"time"`
	Reported  *string        `json:"reportedAt"`
	Speed     *string        `json:"speed"`
	HasMap    bool           `json:"hasMap"`
	UpdatedAt time.Time      `json:"updatedAt"`

	// Displayed is false until the first position has been shown.
	Displayed bool `json:"displayed"`
	// Version increases with every published change.
	Version uint64 `json:"version"`

	mapPNG []byte
}

func initialView() View {
	return View{Address: geotag.AddressPending}
}

// MapPNG returns the circular map image, or nil when none has been fetched.
func (v View) MapPNG() []byte {
	return v.mapPNG
}

// showPosition updates the coordinate and clock lines for a newly displayed position.
func (v *View) showPosition(p geotag.Position, now time.Time) {
	v.Lat = p.Lat
	v.Lon = p.Lon
	v.LatText = fmt.Sprintf("%.6f", p.Lat)
	v.LonText = fmt.Sprintf("%.6f", p.Lon)
	v.Geohash = geohash.EncodeWithPrecision(p.Lat, p.Lon, 9)
	v.Date = now.Format(dateLayout)
	v.Time = now.Format(timeLayout)
	v.Reported = p.Time
	v.Speed = p.Speed
	v.UpdatedAt = now
	v.Displayed = true
}

func (v *View) setMap(png []byte) {
	v.mapPNG = png
	v.HasMap = len(png) > 0
}
