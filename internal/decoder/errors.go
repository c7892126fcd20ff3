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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlobHeaderTooLarge     = errors.New("blob header too large")
	ErrBlobTooLarge           = errors.New("blob too large")
	ErrUnknownCompressionType = errors.New("unknown blob compression type")
	ErrMissingHeader          = errors.New("stream does not start with an OSMHeader blob")
	ErrMalformedBlock         = errors.New("malformed primitive block")
)

// BlobError attaches the position of the offending blob to a decode error.
type BlobError struct {
	Offset int64  // offset of the blob's length prefix in the stream
	Type   string // declared blob type, empty if the header was unreadable
	Err    error
}

func (e *BlobError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("blob at offset %d: %v", e.Offset, e.Err)
	}

	return fmt.Sprintf("%s blob at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

// BlobSizeMismatchError is returned when the decompressed size of a blob
// differs from its declared raw_size.
type BlobSizeMismatchError struct {
	Declared int64
	Actual   int64
}

func (e *BlobSizeMismatchError) Error() string {
	return fmt.Sprintf("raw blob data size %d but expected %d", e.Actual, e.Declared)
}

// MixedGroupError is returned when a PrimitiveGroup holds more than one kind
// of entity.
type MixedGroupError struct {
	Kinds []string
}

func (e *MixedGroupError) Error() string {
	return "primitive group mixes " + strings.Join(e.Kinds, " and ")
}

// UnsupportedFeatureError is returned when the OSMHeader requires a feature
// this decoder cannot honor.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("parser does not have %s capability", e.Feature)
}
