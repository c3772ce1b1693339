package cluster

import "math"

const (
	circleFootSeparation   = 25
	circleStartAngle       = math.Pi / 6
	circleSpiralSwitchover = 9
	spiralFootSeparation   = 28
	spiralLengthStart      = 11
	spiralLengthFactor     = 5
)

// Leg places one cluster member at its own position around the cluster
// center so it can be clicked individually.
type Leg struct {
	PlaceID   int64      `json:"placeId"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Origin    [2]float64 `json:"origin"`
}

// Spiderfy fans the members out around the cluster center at zoom: a circle
// for small clusters, a spiral from circleSpiralSwitchover members up.
func Spiderfy(c Cluster, zoom int) []Leg {
	members := c.members
	center := Project(c.Latitude, c.Longitude, zoom)

	var positions []Pixel
	if len(members) >= circleSpiralSwitchover {
		positions = spiralPositions(len(members), center)
	} else {
		positions = circlePositions(len(members), center)
	}

	legs := make([]Leg, len(members))
	for i, m := range members {
		lat, lon := Unproject(positions[i], zoom)
		legs[i] = Leg{
			PlaceID:   m.ID,
			Latitude:  lat,
			Longitude: lon,
			Origin:    [2]float64{m.Lat, m.Lon},
		}
	}
	return legs
}

func circlePositions(count int, center Pixel) []Pixel {
	circumference := float64(circleFootSeparation * (2 + count))
	legLength := circumference / (2 * math.Pi)
	angleStep := 2 * math.Pi / float64(count)

	out := make([]Pixel, count)
	for i := range out {
		angle := circleStartAngle + float64(i)*angleStep
		out[i] = Pixel{
			X: math.Round(center.X + legLength*math.Cos(angle)),
			Y: math.Round(center.Y + legLength*math.Sin(angle)),
		}
	}
	return out
}

func spiralPositions(count int, center Pixel) []Pixel {
	legLength := float64(spiralLengthStart)
	lengthFactor := spiralLengthFactor * 2 * math.Pi
	angle := 0.0

	out := make([]Pixel, count)
	for i := count; i >= 0; i-- {
		if i < count {
			out[i] = Pixel{
				X: math.Round(center.X + legLength*math.Cos(angle)),
				Y: math.Round(center.Y + legLength*math.Sin(angle)),
			}
		}
		angle += spiralFootSeparation/legLength + float64(i)*0.0005
		legLength += lengthFactor / angle
	}
	return out
}
