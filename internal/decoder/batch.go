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
	"log/slog"

	"github.com/destel/rill"

	"m4o.io/osmscan/internal/core"
	"m4o.io/osmscan/model"
)

// GenerateBatchDecoder creates the function used by the decoding pipeline to
// unpack a batch of blobs and parse them into entities.  Each block's
// entities are sent down the returned channel in batch order; non OSMData
// blobs produce no output.  bufferSize is the initial capacity of the
// decompression buffer.
func GenerateBatchDecoder(bufferSize int) func([]*Blob) <-chan rill.Try[[]model.Entity] {
	return func(array []*Blob) <-chan rill.Try[[]model.Entity] {
		return decodeBatch(array, bufferSize)
	}
}

// decodeBatch unpacks a batch of primitive blobs and parses them into
// entities which are subsequently sent down the out channel.
func decodeBatch(array []*Blob, bufferSize int) (out <-chan rill.Try[[]model.Entity]) {
	ch := make(chan rill.Try[[]model.Entity])
	out = ch

	go func() {
		defer close(ch)

		buf := core.NewPooledBuffer()
		defer buf.Close()

		if bufferSize > buf.Cap() {
			buf.Grow(bufferSize)
		}

		for _, blob := range array {
			if blob.Type != TypeData {
				slog.Debug("skipping blob", "type", blob.Type, "offset", blob.Offset)

				continue
			}

			buf.Reset()

			unpacked, err := unpack(buf, blob)
			if err != nil {
				slog.Error("unable to unpack blob", "offset", blob.Offset, "error", err)
				ch <- rill.Try[[]model.Entity]{Error: &BlobError{Offset: blob.Offset, Type: blob.Type, Err: err}}

				return
			}

			entities, err := parsePrimitiveBlock(unpacked)
			if err != nil {
				slog.Error("unable to parse block", "offset", blob.Offset, "error", err)
				ch <- rill.Try[[]model.Entity]{Error: &BlobError{Offset: blob.Offset, Type: blob.Type, Err: err}}

				return
			}

			ch <- rill.Try[[]model.Entity]{Value: entities}
		}
	}()

	return out
}
