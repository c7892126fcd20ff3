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

package encoder

import (
	"fmt"
	"io"

	"m4o.io/osmscan/model"
)

// SaveHeader writes hdr as the OSMHeader blob.
func SaveHeader(wrtr io.Writer, hdr model.Header, compression BlobCompression) error {
	var hb []byte

	if bbox := hdr.BoundingBox; bbox != nil {
		var b []byte
		b = appendSint64(b, 1, bbox.Left.Coordinate())
		b = appendSint64(b, 2, bbox.Right.Coordinate())
		b = appendSint64(b, 3, bbox.Top.Coordinate())
		b = appendSint64(b, 4, bbox.Bottom.Coordinate())
		hb = appendMessage(hb, 1, b)
	}

	for _, f := range hdr.RequiredFeatures {
		hb = appendString(hb, 4, f)
	}

	for _, f := range hdr.OptionalFeatures {
		hb = appendString(hb, 5, f)
	}

	if hdr.WritingProgram != "" {
		hb = appendString(hb, 16, hdr.WritingProgram)
	}

	if hdr.Source != "" {
		hb = appendString(hb, 17, hdr.Source)
	}

	if ts := hdr.OsmosisReplicationTimestamp; !ts.IsZero() {
		hb = appendVarint(hb, 32, uint64(ts.Unix()))
	}

	if hdr.OsmosisReplicationSequenceNumber != 0 {
		hb = appendVarint(hb, 33, uint64(hdr.OsmosisReplicationSequenceNumber))
	}

	if hdr.OsmosisReplicationBaseURL != "" {
		hb = appendString(hb, 34, hdr.OsmosisReplicationBaseURL)
	}

	bb, err := Pack(hb, compression)
	if err != nil {
		return fmt.Errorf("could not pack header: %w", err)
	}

	if err := WriteBlob(wrtr, TypeHeader, bb); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	return nil
}
