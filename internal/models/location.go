package models

import (
	"math"
	"time"
)

// TextOnlyLocationID marks an instance whose location is free text with no
// matching zone.
const TextOnlyLocationID = "TEXT_ONLY"

// Provenance notes stamped on generated instances.
const (
	NoteInstallLocationSync = "auto: install location"
	NoteDistribution        = "auto: distribution"
)

// DeviceInstance is N units of a device placed at one location.
type DeviceInstance struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"deviceId"`
	LocationID   string    `json:"locationId"`
	LocationName string    `json:"locationName"`
	Quantity     int       `json:"quantity"`
	Notes        string    `json:"notes"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LocationType classifies a location on the floor plan
type LocationType string

const (
	LocationTypeClassroom LocationType = "Classroom"
	LocationTypeCart      LocationType = "Cart"
	LocationTypeOffice    LocationType = "Office"
)

// DefaultMapID is used when a location or map request names no map.
const DefaultMapID = "default"

// Location is a named pin or rectangular zone on a floor-plan image.
// Coordinates are percentages of the image (0-100).
type Location struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	PinX   float64      `json:"pinX"`
	PinY   float64      `json:"pinY"`
	Width  *float64     `json:"width,omitempty"`
	Height *float64     `json:"height,omitempty"`
	Color  string       `json:"color"`
	Type   LocationType `json:"type"`
	MapID  string       `json:"mapId"`
}

// IsZone reports whether the location renders as a rectangle.
func (l *Location) IsZone() bool {
	return l.Width != nil && l.Height != nil
}

// Zone is one entry of a map's serialized zone list.
type Zone struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Color  string       `json:"color,omitempty"`
	Type   LocationType `json:"type,omitempty"`
}

// Center returns the midpoint of the zone's bounding box.
func (z Zone) Center() (float64, float64) {
	return z.X + z.Width/2, z.Y + z.Height/2
}

// CenterDistance is the Euclidean distance between two zone centers in
// percentage-of-image units.
func CenterDistance(a, b Zone) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	return math.Hypot(ax-bx, ay-by)
}

// ZoneFromLocation projects a location onto the zone-list shape.
func ZoneFromLocation(l Location) Zone {
	z := Zone{ID: l.ID, Name: l.Name, X: l.PinX, Y: l.PinY, Color: l.Color, Type: l.Type}
	if l.Width != nil {
		z.Width = *l.Width
	}
	if l.Height != nil {
		z.Height = *l.Height
	}
	return z
}

// LocationFromZone builds a rectangular location for a map.
func LocationFromZone(z Zone, mapID string) Location {
	w, h := z.Width, z.Height
	return Location{
		ID:     z.ID,
		Name:   z.Name,
		PinX:   z.X,
		PinY:   z.Y,
		Width:  &w,
		Height: &h,
		Color:  z.Color,
		Type:   z.Type,
		MapID:  mapID,
	}
}

// MapConfiguration holds a floor-plan image and its ordered zones.
type MapConfiguration struct {
	MapID     string    `json:"mapId"`
	Image     string    `json:"image"`
	Zones     []Zone    `json:"zones"`
	UpdatedAt time.Time `json:"updatedAt"`
}
