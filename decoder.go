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

// Package osmscan streams the entities of OpenStreetMap PBF files and feeds
// them to filtering and counting sinks.
package osmscan

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/destel/rill"

	"m4o.io/osmscan/internal/decoder"
	"m4o.io/osmscan/model"
)

// Decoder reads and decodes OpenStreetMap PBF data from an input stream.
// Blocks are decoded in parallel but returned in file order.
type Decoder struct {
	Header model.Header

	entities <-chan rill.Try[[]model.Entity]
	cancel   context.CancelFunc
	once     sync.Once
	closed   atomic.Bool
	err      error
}

// NewDecoder returns a new decoder, configured with opts, that reads from
// rdr.  The header blob is read and validated before NewDecoder returns.
func NewDecoder(ctx context.Context, rdr io.Reader, opts ...DecoderOption) (*Decoder, error) {
	cfg := newDecoderOptions(opts)

	br := decoder.NewBlobReader(rdr)

	hdr, err := br.ReadHeader()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	blobs := rill.FromSeq2(br.All(ctx))
	batches := rill.Batch(blobs, cfg.protoBatchSize, -1)
	entities := rill.OrderedFlatMap(batches, int(cfg.nCPU), decoder.GenerateBatchDecoder(cfg.protoBufferSize))

	return &Decoder{
		Header:   hdr,
		entities: entities,
		cancel:   cancel,
	}, nil
}

// Decode returns the entities of the next block, in block order.  io.EOF is
// returned once the stream is exhausted or the decoder is closed.  The first
// decoding error stops the decoder and is returned by every later call.
func (d *Decoder) Decode() ([]model.Entity, error) {
	if d.err != nil {
		return nil, d.err
	}

	if d.closed.Load() {
		return nil, io.EOF
	}

	t, ok := <-d.entities
	if !ok {
		return nil, io.EOF
	}

	if t.Error != nil {
		if d.closed.Load() && errors.Is(t.Error, context.Canceled) {
			return nil, io.EOF
		}

		d.err = t.Error
		d.Close()

		return nil, d.err
	}

	return t.Value, nil
}

// All returns an iterator over the remaining entities.  A decoding error is
// yielded once and ends the iteration.
func (d *Decoder) All() iter.Seq2[model.Entity, error] {
	return func(yield func(model.Entity, error) bool) {
		for {
			entities, err := d.Decode()
			if errors.Is(err, io.EOF) {
				return
			} else if err != nil {
				yield(nil, err)

				return
			}

			for _, e := range entities {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

// Close stops the decoding pipeline and releases its goroutines.  It is safe
// to call more than once and from another goroutine than Decode.
func (d *Decoder) Close() {
	d.once.Do(func() {
		d.closed.Store(true)
		d.cancel()
		rill.DrainNB(d.entities)
	})
}
