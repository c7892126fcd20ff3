// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
)

const (
	MaxLat Degrees = 90.0
	MaxLon Degrees = 180.0
	MinLat Degrees = -90.0
	MinLon Degrees = -180.0
)

// BoundingBox is the rectangle spanned by a set of coordinates.  The header
// of a PBF file carries one covering every node.
type BoundingBox struct {
	Top    Degrees `json:"top"`
	Left   Degrees `json:"left"`
	Bottom Degrees `json:"bottom"`
	Right  Degrees `json:"right"`
}

// EmptyBoundingBox returns an inverted box that contains nothing.  The first
// call to Extend collapses it onto that point.
func EmptyBoundingBox() *BoundingBox {
	return &BoundingBox{Top: MinLat, Left: MaxLon, Bottom: MaxLat, Right: MinLon}
}

// IsEmpty reports whether no point has been added to the box.
func (b *BoundingBox) IsEmpty() bool {
	return b.Top < b.Bottom || b.Right < b.Left
}

// EqualWithin checks if two bounding boxes are within a specific epsilon.
func (b *BoundingBox) EqualWithin(o *BoundingBox, eps Epsilon) bool {
	return b.Left.EqualWithin(o.Left, eps) &&
		b.Right.EqualWithin(o.Right, eps) &&
		b.Top.EqualWithin(o.Top, eps) &&
		b.Bottom.EqualWithin(o.Bottom, eps)
}

// Contains checks if the box contains the point, edges included.
func (b *BoundingBox) Contains(lat, lon Degrees) bool {
	return b.Bottom <= lat && lat <= b.Top && b.Left <= lon && lon <= b.Right
}

// Extend grows the box to cover the point.
func (b *BoundingBox) Extend(lat, lon Degrees) {
	b.Top, b.Bottom = max(b.Top, lat), min(b.Bottom, lat)
	b.Left, b.Right = min(b.Left, lon), max(b.Right, lon)
}

func (b *BoundingBox) String() string {
	return fmt.Sprintf("[(%s, %s) (%s, %s)]",
		ftoa(float64(b.Top)), ftoa(float64(b.Left)),
		ftoa(float64(b.Bottom)), ftoa(float64(b.Right)))
}

// DMS renders the box like String with each edge in degrees, minutes and
// seconds.
func (b *BoundingBox) DMS() string {
	return fmt.Sprintf("[(%s, %s) (%s, %s)]", b.Top, b.Left, b.Bottom, b.Right)
}
