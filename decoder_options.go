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
	"runtime"

	"m4o.io/osmscan/internal/core"
)

const (
	// DefaultBufferSize is the default initial capacity of the buffer used
	// to decompress a blob.
	DefaultBufferSize = core.DefaultBufferSize

	// DefaultBatchSize is the default number of blobs handed to a decoding
	// worker at a time.
	DefaultBatchSize = 16
)

// DefaultNCpu provides the default number of CPUs to use for decoding: all
// but one, and at least one.
func DefaultNCpu() uint16 {
	cpus := uint16(runtime.GOMAXPROCS(-1))

	return max(cpus-1, 1)
}

// decoderOptions provides optional configuration parameters for Decoder
// construction.
type decoderOptions struct {
	protoBufferSize int    // initial decompression buffer size
	protoBatchSize  int    // blobs per decoding batch
	nCPU            uint16 // the number of CPUs to use for background processing
}

// DecoderOption configures how we set up the decoder.
type DecoderOption func(*decoderOptions)

// WithProtoBufferSize lets you set the initial decompression buffer size.
func WithProtoBufferSize(s int) DecoderOption {
	return func(o *decoderOptions) {
		o.protoBufferSize = s
	}
}

// WithProtoBatchSize lets you set the number of blobs decoded per batch.
func WithProtoBatchSize(s int) DecoderOption {
	return func(o *decoderOptions) {
		o.protoBatchSize = s
	}
}

// WithNCpus lets you set the number of CPUs to use for background
// processing.  Zero keeps the default.
func WithNCpus(n uint16) DecoderOption {
	return func(o *decoderOptions) {
		o.nCPU = n
	}
}

// defaultDecoderConfig provides a default configuration for decoders.
var defaultDecoderConfig = decoderOptions{
	protoBufferSize: DefaultBufferSize,
	protoBatchSize:  DefaultBatchSize,
	nCPU:            DefaultNCpu(),
}

func newDecoderOptions(opts []DecoderOption) decoderOptions {
	cfg := defaultDecoderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.protoBufferSize <= 0 {
		cfg.protoBufferSize = DefaultBufferSize
	}

	if cfg.protoBatchSize <= 0 {
		cfg.protoBatchSize = DefaultBatchSize
	}

	if cfg.nCPU == 0 {
		cfg.nCPU = DefaultNCpu()
	}

	return cfg
}
