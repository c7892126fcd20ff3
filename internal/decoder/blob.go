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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"m4o.io/osmscan/internal/core"
	"m4o.io/osmscan/internal/wire"
	"m4o.io/osmscan/model"
)

const (
	// TypeHeader is the blob type of the file header.
	TypeHeader = "OSMHeader"

	// TypeData is the blob type of a PrimitiveBlock.
	TypeData = "OSMData"

	maxBlobHeaderSize = 64 * 1024
	maxBlobSize       = 32 * 1024 * 1024
)

// Compression is the encoding of a blob's payload.
type Compression int

const (
	Raw Compression = iota
	Zlib
	Lzma
	Bzip2
	Lz4
	Zstd
)

// Blob is one container chunk of a PBF stream, still compressed.
type Blob struct {
	Type        string
	Offset      int64
	Compression Compression
	RawSize     int64 // zero if the blob did not declare one
	Data        []byte
}

// Payload is the decompressed content of a blob tagged with its type.
type Payload struct {
	Type   string
	Offset int64
	Data   []byte
}

// GenerateBlobReader creates an iterator that returns blobs read off of the
// reader, starting with the header blob.
func GenerateBlobReader(ctx context.Context, reader io.Reader) iter.Seq2[*Blob, error] {
	return NewBlobReader(reader).All(ctx)
}

// Blobs returns a restartable sequence of decompressed OSMData payloads.  Each
// iteration rewinds the source, validates the header and then yields data
// blobs in file order.
func Blobs(ctx context.Context, rs io.ReadSeeker) iter.Seq2[Payload, error] {
	return func(yield func(Payload, error) bool) {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			yield(Payload{}, fmt.Errorf("unable to rewind: %w", err))

			return
		}

		br := NewBlobReader(rs)
		if _, err := br.ReadHeader(); err != nil {
			yield(Payload{}, err)

			return
		}

		buf := core.NewPooledBuffer()
		defer buf.Close()

		for blob, err := range br.All(ctx) {
			if err != nil {
				yield(Payload{}, err)

				return
			}

			if blob.Type != TypeData {
				slog.Debug("skipping blob", "type", blob.Type, "offset", blob.Offset)

				continue
			}

			buf.Reset()

			data, err := unpack(buf, blob)
			if err != nil {
				yield(Payload{}, &BlobError{Offset: blob.Offset, Type: blob.Type, Err: err})

				return
			}

			// the buffer is reused for the next blob
			payload := Payload{Type: blob.Type, Offset: blob.Offset, Data: append([]byte(nil), data...)}
			if !yield(payload, nil) {
				return
			}
		}
	}
}

// BlobReader reads the length-prefixed container framing and keeps track of
// the stream offset for error reporting.
type BlobReader struct {
	r      io.Reader
	offset int64
}

// NewBlobReader creates a BlobReader positioned at the start of a stream.
func NewBlobReader(r io.Reader) *BlobReader {
	return &BlobReader{r: r}
}

// Offset returns the number of bytes consumed so far.
func (br *BlobReader) Offset() int64 {
	return br.offset
}

// ReadHeader reads the next blob, which must be the OSMHeader, and decodes it.
func (br *BlobReader) ReadHeader() (model.Header, error) {
	blob, err := br.Next()
	if errors.Is(err, io.EOF) {
		return model.Header{}, ErrMissingHeader
	} else if err != nil {
		return model.Header{}, err
	}

	return headerFromBlob(blob)
}

// All creates an iterator over the remaining blobs.  A clean end of stream
// ends the iteration; every other failure is yielded once and ends it too.
func (br *BlobReader) All(ctx context.Context) iter.Seq2[*Blob, error] {
	return func(yield func(*Blob, error) bool) {
		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			default:
			}

			blob, err := br.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Error("unable to read blob", "error", err)
					yield(nil, err)
				}

				return
			}

			if !yield(blob, nil) {
				return
			}
		}
	}
}

// Next reads the next blob.  io.EOF is returned only when the stream ends
// cleanly on a blob boundary.
func (br *BlobReader) Next() (*Blob, error) {
	start := br.offset

	var prefix [4]byte

	if err := br.readFull(prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		return nil, &BlobError{Offset: start, Err: err}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxBlobHeaderSize {
		return nil, &BlobError{Offset: start, Err: fmt.Errorf("%w: %d bytes", ErrBlobHeaderTooLarge, size)}
	}

	hb := make([]byte, size)
	if err := br.readFull(hb); err != nil {
		return nil, &BlobError{Offset: start, Err: truncated(err, br.offset, len(hb))}
	}

	typ, datasize, err := parseBlobHeader(hb)
	if err != nil {
		return nil, &BlobError{Offset: start, Err: fmt.Errorf("error reading blob header: %w", err)}
	}

	if datasize < 0 || datasize > maxBlobSize {
		return nil, &BlobError{Offset: start, Type: typ, Err: fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, datasize)}
	}

	data := make([]byte, datasize)
	if err := br.readFull(data); err != nil {
		return nil, &BlobError{Offset: start, Type: typ, Err: truncated(err, br.offset, len(data))}
	}

	blob, err := parseBlob(data)
	if err != nil {
		return nil, &BlobError{Offset: start, Type: typ, Err: fmt.Errorf("error reading blob: %w", err)}
	}

	blob.Type = typ
	blob.Offset = start

	return blob, nil
}

// readFull fills p.  io.EOF means nothing was read; a partial read is
// reported as a TruncatedInputError.
func (br *BlobReader) readFull(p []byte) error {
	n, err := io.ReadFull(br.r, p)
	br.offset += int64(n)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &wire.TruncatedInputError{Offset: br.offset - int64(n), Need: int64(len(p) - n)}
	default:
		return err
	}
}

// truncated turns a clean EOF in the middle of a blob into a truncation.
func truncated(err error, offset int64, need int) error {
	if errors.Is(err, io.EOF) {
		return &wire.TruncatedInputError{Offset: offset, Need: int64(need)}
	}

	return err
}

// parseBlobHeader decodes the type and data size of a BlobHeader.
func parseBlobHeader(buf []byte) (typ string, datasize int64, err error) {
	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			typ = r.Text()
		case 3:
			datasize = int64(r.Int32())
		default:
			r.Skip()
		}
	}

	return typ, datasize, r.Err()
}

// parseBlob decodes a Blob message.  The payload aliases buf.
func parseBlob(buf []byte) (*Blob, error) {
	blob := &Blob{Compression: -1}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			blob.Compression, blob.Data = Raw, r.Bytes()
		case 2:
			blob.RawSize = int64(r.Int32())
		case 3:
			blob.Compression, blob.Data = Zlib, r.Bytes()
		case 4:
			blob.Compression, blob.Data = Lzma, r.Bytes()
		case 5:
			blob.Compression, blob.Data = Bzip2, r.Bytes()
		case 6:
			blob.Compression, blob.Data = Lz4, r.Bytes()
		case 7:
			blob.Compression, blob.Data = Zstd, r.Bytes()
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return blob, nil
}
