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
	"io"

	"github.com/destel/rill"

	"m4o.io/osmscan/model"
)

// Coalesce regroups streamed entities into batches holding a single kind of
// entity and at most size entities.  Input order is preserved: a batch is cut
// whenever the kind changes or the batch is full.
func Coalesce(in <-chan []model.Entity, size int) <-chan rill.Try[[]model.Entity] {
	out := make(chan rill.Try[[]model.Entity])

	go func() {
		defer close(out)

		var batch []model.Entity

		flush := func() {
			if len(batch) > 0 {
				out <- rill.Wrap(batch, nil)
				batch = nil
			}
		}

		for entities := range in {
			for _, e := range entities {
				if len(batch) == size || (len(batch) > 0 && model.TypeOf(batch[0]) != model.TypeOf(e)) {
					flush()
				}

				batch = append(batch, e)
			}
		}

		flush()
	}()

	return out
}

// ExtractBoundingBoxes expands bbox with the coordinates of every node that
// passes through.  bbox may be read once the returned channel is drained.
func ExtractBoundingBoxes(
	in <-chan rill.Try[[]model.Entity],
	bbox *model.BoundingBox,
) <-chan rill.Try[[]model.Entity] {
	out := make(chan rill.Try[[]model.Entity])

	go func() {
		defer close(out)

		for entities := range in {
			for _, e := range entities.Value {
				switch n := e.(type) {
				case *model.Node:
					bbox.Extend(n.Lat, n.Lon)
				case model.Node:
					bbox.Extend(n.Lat, n.Lon)
				}
			}

			out <- entities
		}
	}()

	return out
}

func GenerateBatchEncoder(cfg BlockConfig) func(batch []model.Entity) ([]byte, error) {
	return func(batch []model.Entity) ([]byte, error) {
		return EncodeBlock(cfg, batch)
	}
}

func GenerateBatchPacker(c BlobCompression) func(block []byte) ([]byte, error) {
	return func(block []byte) ([]byte, error) {
		return Pack(block, c)
	}
}

// SavePacked writes packed OSMData blobs in arrival order.  After the first
// failure the remaining blobs are drained without being written.
func SavePacked(w io.Writer, ch <-chan rill.Try[[]byte]) <-chan rill.Try[struct{}] {
	out := make(chan rill.Try[struct{}])

	go func() {
		defer close(out)

		var failed bool

		for bb := range ch {
			if failed {
				continue
			}

			err := bb.Error
			if err == nil {
				err = WriteBlob(w, TypeData, bb.Value)
			}

			failed = err != nil
			out <- rill.Wrap(struct{}{}, err)
		}
	}()

	return out
}
