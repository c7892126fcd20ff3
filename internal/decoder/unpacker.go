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
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmscan/internal/core"
)

// unpack uncompresses the blob into buf and returns the raw block bytes.
// The result aliases either the blob or buf.
//
// This method is not "buried" within the blob reader so that decompression
// of blobs can be performed concurrently.
func unpack(buf *core.PooledBuffer, blob *Blob) ([]byte, error) {
	var factory func(r io.Reader) (io.ReadCloser, error)

	switch blob.Compression {
	case Raw:
		if blob.RawSize != 0 && blob.RawSize != int64(len(blob.Data)) {
			return nil, &BlobSizeMismatchError{Declared: blob.RawSize, Actual: int64(len(blob.Data))}
		}

		return blob.Data, nil
	case Zlib:
		factory = func(r io.Reader) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		}
	case Lzma:
		factory = func(r io.Reader) (io.ReadCloser, error) {
			lr, err := lzma.NewReader(r)
			if err != nil {
				return nil, err
			}

			return io.NopCloser(lr), nil
		}
	case Lz4:
		factory = func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		}
	case Zstd:
		factory = func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}

			return d.IOReadCloser(), nil
		}
	default:
		return nil, ErrUnknownCompressionType
	}

	if blob.RawSize < 0 || blob.RawSize > maxBlobSize {
		return nil, fmt.Errorf("%w: raw size %d bytes", ErrBlobTooLarge, blob.RawSize)
	}

	// a compressed blob without raw_size declares zero bytes
	limit := blob.RawSize
	if limit <= 0 {
		limit = maxBlobSize
	}

	if need := int(blob.RawSize) + bytes.MinRead; need > buf.Cap() {
		buf.Grow(need)
	}

	rdr, err := factory(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}
	defer rdr.Close()

	// read one byte past the declaration to detect oversized payloads
	n, err := buf.ReadFrom(io.LimitReader(rdr, limit+1))
	if err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	}

	if n != blob.RawSize {
		return nil, &BlobSizeMismatchError{Declared: blob.RawSize, Actual: n}
	}

	return buf.Bytes(), nil
}
