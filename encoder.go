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

package osmscan

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/destel/rill"

	"m4o.io/osmscan/internal/encoder"
	"m4o.io/osmscan/model"
)

var (
	// ErrCreateTempFile is returned when the temporary body file cannot be
	// created.
	ErrCreateTempFile = errors.New("cannot create temporary file")

	// ErrEncoderClosed is returned when entities are encoded after Close.
	ErrEncoderClosed = errors.New("encoder is closed")
)

// Encoder writes entities as an OpenStreetMap PBF stream.  Entities keep
// their order; consecutive entities of one kind share a block of at most
// 8000 entities.  Blocks are encoded and compressed in parallel and written
// to a temporary file, which is copied to the destination after the header
// on Close.
type Encoder struct {
	cfg   encoderOptions
	wrtr  io.Writer
	store *os.File
	bbox  *model.BoundingBox

	entities chan []model.Entity
	done     chan struct{}
	err      error

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewEncoder returns a new encoder, configured with opts, that writes to
// wrtr.
func NewEncoder(wrtr io.Writer, opts ...EncoderOption) (*Encoder, error) {
	cfg := newEncoderOptions(opts)

	store, err := os.CreateTemp(cfg.store, "osmscan-*.pbf")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateTempFile, err)
	}

	e := &Encoder{
		cfg:      cfg,
		wrtr:     wrtr,
		store:    store,
		bbox:     model.EmptyBoundingBox(),
		entities: make(chan []model.Entity),
		done:     make(chan struct{}),
	}

	n := int(cfg.nCPU)

	batches := encoder.Coalesce(e.entities, encoder.EntityLimit)
	inspected := encoder.ExtractBoundingBoxes(batches, e.bbox)
	blocks := rill.OrderedMap(inspected, n, encoder.GenerateBatchEncoder(cfg.block))
	packed := rill.OrderedMap(blocks, n, encoder.GenerateBatchPacker(cfg.compression))
	statuses := encoder.SavePacked(store, packed)

	go e.collect(statuses)

	return e, nil
}

// collect records the first pipeline failure.
func (e *Encoder) collect(statuses <-chan rill.Try[struct{}]) {
	defer close(e.done)

	for s := range statuses {
		if s.Error != nil && e.err == nil {
			slog.Error("unable to save block", "error", s.Error)
			e.err = s.Error
		}
	}
}

// Encode queues one entity.
func (e *Encoder) Encode(entity model.Entity) error {
	return e.EncodeBatch([]model.Entity{entity})
}

// EncodeBatch queues entities in order.  Encoding failures surface on Close.
func (e *Encoder) EncodeBatch(entities []model.Entity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEncoderClosed
	}

	e.entities <- slices.Clone(entities)

	return nil
}

// Close flushes the queued entities, writes the header and the encoded body
// to the destination and removes the temporary file.  Subsequent calls
// return the result of the first.
func (e *Encoder) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.entities)
		e.mu.Unlock()

		<-e.done

		e.closeErr = e.finish()
	})

	return e.closeErr
}

func (e *Encoder) finish() (err error) {
	defer func() {
		if cerr := e.store.Close(); err == nil && cerr != nil {
			err = cerr
		}

		if rerr := os.Remove(e.store.Name()); err == nil && rerr != nil {
			err = rerr
		}
	}()

	if e.err != nil {
		return e.err
	}

	hdr := e.cfg.header()
	if !e.bbox.IsEmpty() {
		hdr.BoundingBox = e.bbox
	}

	if err := encoder.SaveHeader(e.wrtr, hdr, e.cfg.compression); err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}

	if _, err := e.store.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if _, err := io.Copy(e.wrtr, e.store); err != nil {
		return fmt.Errorf("unable to copy body: %w", err)
	}

	return nil
}
