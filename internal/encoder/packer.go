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

	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmscan/internal/encoder/packers"
)

// Packer is the interface that groups methods for packing the contents of a
// PBF blob and saving the packed data in the correct place.
type Packer interface {
	// WriteCloser is used to write the contents of the blob to be packed.
	// Be sure to call the Close method to ensure that all the contents are
	// packed.
	io.WriteCloser

	// SaveTo appends the packed contents to an encoded Blob using the
	// field matching the compression.
	SaveTo(blob []byte) []byte
}

// Pack compresses an encoded message and wraps it into an encoded Blob.
func Pack(msg []byte, c BlobCompression) (bb []byte, err error) {
	p, err := newPacker(c)
	if err != nil {
		return nil, err
	}

	if _, err = p.Write(msg); err != nil {
		return nil, fmt.Errorf("could not compress message: %w", err)
	}

	if err = p.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	bb = protowire.AppendTag(bb, blobRawSize, protowire.VarintType)
	bb = protowire.AppendVarint(bb, uint64(len(msg)))

	return p.SaveTo(bb), nil
}

// newPacker creates the appropriate Packer for the compression.
func newPacker(c BlobCompression) (Packer, error) {
	switch c {
	case RAW:
		return packers.NewRawPacker(), nil
	case ZLIB:
		return packers.NewZlibPacker(), nil
	case LZMA:
		p, err := packers.NewLzmaPacker()
		if err != nil {
			return nil, err
		}

		return p, nil
	case LZ4:
		return packers.NewLz4Packer(), nil
	case ZSTD:
		p, err := packers.NewZstdPacker()
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %v", c)
	}
}
