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

package decoder

import (
	"fmt"
	"io"
	"time"

	"m4o.io/osmscan/internal/core"
	"m4o.io/osmscan/internal/wire"
	"m4o.io/osmscan/model"
)

// parseCapabilities are the required features this decoder understands.
var parseCapabilities = map[string]bool{
	"OsmSchema-V0.6": true,
	"DenseNodes":     true,
}

// LoadHeader reads the first blob off of the reader and decodes it into the
// file header.
func LoadHeader(reader io.Reader) (model.Header, error) {
	return NewBlobReader(reader).ReadHeader()
}

// headerFromBlob unpacks, decodes and validates an OSMHeader blob.
func headerFromBlob(blob *Blob) (model.Header, error) {
	if blob.Type != TypeHeader {
		return model.Header{}, &BlobError{Offset: blob.Offset, Type: blob.Type, Err: ErrMissingHeader}
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	data, err := unpack(buf, blob)
	if err != nil {
		return model.Header{}, &BlobError{Offset: blob.Offset, Type: blob.Type, Err: err}
	}

	hdr, err := parseHeaderBlock(data)
	if err != nil {
		return model.Header{}, &BlobError{Offset: blob.Offset, Type: blob.Type, Err: err}
	}

	for _, feature := range hdr.RequiredFeatures {
		if !parseCapabilities[feature] {
			return model.Header{}, &BlobError{
				Offset: blob.Offset,
				Type:   blob.Type,
				Err:    &UnsupportedFeatureError{Feature: feature},
			}
		}
	}

	return hdr, nil
}

func parseHeaderBlock(buf []byte) (model.Header, error) {
	var hdr model.Header

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			bbox, err := parseHeaderBBox(r.Bytes())
			if err != nil {
				return model.Header{}, fmt.Errorf("unable to decode header bbox: %w", err)
			}

			hdr.BoundingBox = bbox
		case 4:
			hdr.RequiredFeatures = append(hdr.RequiredFeatures, r.Text())
		case 5:
			hdr.OptionalFeatures = append(hdr.OptionalFeatures, r.Text())
		case 16:
			hdr.WritingProgram = r.Text()
		case 17:
			hdr.Source = r.Text()
		case 32:
			hdr.OsmosisReplicationTimestamp = time.Unix(r.Int64(), 0).UTC()
		case 33:
			hdr.OsmosisReplicationSequenceNumber = r.Int64()
		case 34:
			hdr.OsmosisReplicationBaseURL = r.Text()
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return model.Header{}, fmt.Errorf("unable to decode header block: %w", err)
	}

	return hdr, nil
}

// parseHeaderBBox decodes a HeaderBBox, whose edges are in nanodegrees.
func parseHeaderBBox(buf []byte) (*model.BoundingBox, error) {
	bbox := &model.BoundingBox{}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			bbox.Left = model.ToDegrees(0, 1, r.Sint64())
		case 2:
			bbox.Right = model.ToDegrees(0, 1, r.Sint64())
		case 3:
			bbox.Top = model.ToDegrees(0, 1, r.Sint64())
		case 4:
			bbox.Bottom = model.ToDegrees(0, 1, r.Sint64())
		default:
			r.Skip()
		}
	}

	return bbox, r.Err()
}
