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
	"math"
	"strconv"

	"github.com/golang/geo/s1"
)

const (
	// nanodegreesPerDegree is the PBF fixed-point scale.
	nanodegreesPerDegree = 1e9

	// ftoaPrecision rounds away float noise finer than a nanodegree.
	ftoaPrecision = 1e9
)

// Degrees is the decimal degree representation of a longitude or latitude.
type Degrees float64

// Epsilon is an enumeration of precisions that can be used when comparing Degrees.
type Epsilon float64

const (
	E5 Epsilon = 1e-5
	E6 Epsilon = 1e-6
	E7 Epsilon = 1e-7
	E8 Epsilon = 1e-8
	E9 Epsilon = 1e-9

	Half = 0.5
)

// sexagesimal units, in micro arcseconds
const (
	microsPerSecond = 1_000_000
	microsPerMinute = 60 * microsPerSecond
	microsPerDegree = 60 * microsPerMinute
)

// Angle returns the equivalent s1.Angle.
func (d Degrees) Angle() s1.Angle { return s1.Angle(d) * s1.Degree }

// String renders the angle in degrees, minutes and seconds, e.g.
// 53° 7' 24.42".  Seconds are rounded to the micro arcsecond, carrying into
// minutes and degrees rather than printing 60".
func (d Degrees) String() string {
	a := d.Angle()

	sign := ""
	if a < 0 {
		sign = "-"
	}

	total := int64(math.Round(math.Abs(a.Degrees()) * microsPerDegree))
	degrees := total / microsPerDegree
	minutes := total % microsPerDegree / microsPerMinute
	seconds := float64(total%microsPerMinute) / microsPerSecond

	return fmt.Sprintf("%s%d\u00B0 %d' %s\"", sign, degrees, minutes,
		strconv.FormatFloat(seconds, 'f', -1, 64))
}

func (d Degrees) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal()), nil
}

// Decimal formats the angle as plain decimal degrees.
func (d Degrees) Decimal() string {
	return ftoa(float64(d))
}

// EqualWithin checks if two degrees are within a specific epsilon.
func (d Degrees) EqualWithin(o Degrees, eps Epsilon) bool {
	return round(float64(d)/float64(eps))-round(float64(o)/float64(eps)) == 0
}

// ToDegrees converts a coordinate into Degrees, given the offset and
// granularity of the coordinate.  Decimal inputs such as 139.1 survive a
// round trip through ToCoordinate exactly.
func ToDegrees(offset int64, granularity int32, coordinate int64) Degrees {
	return Degrees(float64(offset+(int64(granularity)*coordinate)) / nanodegreesPerDegree)
}

// ToCoordinate is the inverse of ToDegrees.
func ToCoordinate(offset int64, granularity int32, d Degrees) int64 {
	return int64(math.Round((float64(d)*nanodegreesPerDegree - float64(offset)) / float64(granularity)))
}

// Coordinate returns the angle in nanodegrees, the unit of the PBF header
// bounding box.
func (d Degrees) Coordinate() int64 {
	return int64(math.Round(float64(d) * nanodegreesPerDegree))
}

// round returns the value rounded to nearest as an int32.
// This does not match C++ exactly for the case of x.5.
func round(val float64) int32 {
	if val < 0 {
		return int32(val - Half)
	}

	return int32(val + Half)
}

// ftoa formats f with the fewest digits that survive a nanodegree rounding.
func ftoa(f float64) string {
	return strconv.FormatFloat(math.Round(f*ftoaPrecision)/ftoaPrecision, 'f', -1, 64)
}
