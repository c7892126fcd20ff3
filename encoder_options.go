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
	"time"

	"m4o.io/osmscan/internal/encoder"
	"m4o.io/osmscan/model"
)

// BlobCompression is the compression applied to written blobs.
type BlobCompression = encoder.BlobCompression

const (
	RAW  = encoder.RAW
	ZLIB = encoder.ZLIB
	LZMA = encoder.LZMA
	LZ4  = encoder.LZ4
	ZSTD = encoder.ZSTD

	// DefaultBlobCompression is the compression used unless configured.
	DefaultBlobCompression = ZLIB
)

// ParseCompression converts a compression name such as "zstd" into a
// BlobCompression.
func ParseCompression(s string) (BlobCompression, error) {
	return encoder.ParseCompression(s)
}

// encoderOptions provides optional configuration parameters for Encoder
// construction.
type encoderOptions struct {
	compression encoder.BlobCompression
	block       encoder.BlockConfig
	nCPU        uint16 // the number of CPUs to use for background processing

	store string // directory of the temporary body file

	requiredFeatures                 []string
	optionalFeatures                 []string
	writingProgram                   string
	source                           string
	osmosisReplicationTimestamp      time.Time
	osmosisReplicationSequenceNumber int64
	osmosisReplicationBaseURL        string
}

// EncoderOption configures how we set up the encoder.
type EncoderOption func(*encoderOptions)

// WithCompression lets you set the blob compression.
func WithCompression(compression BlobCompression) EncoderOption {
	return func(o *encoderOptions) {
		o.compression = compression
	}
}

// WithDenseNodes selects between dense node groups, the default, and plain
// Node records.
func WithDenseNodes(dense bool) EncoderOption {
	return func(o *encoderOptions) {
		o.block.PlainNodes = !dense
	}
}

// WithGranularity lets you set the coordinate granularity, in nanodegrees,
// and the latitude and longitude offsets of written blocks.
func WithGranularity(granularity int32, latOffset, lonOffset int64) EncoderOption {
	return func(o *encoderOptions) {
		o.block.Granularity = granularity
		o.block.LatOffset = latOffset
		o.block.LonOffset = lonOffset
	}
}

// WithEncoderNCpus lets you set the number of CPUs used to encode and
// compress blocks.
func WithEncoderNCpus(n uint16) EncoderOption {
	return func(o *encoderOptions) {
		o.nCPU = n
	}
}

// WithStorePath lets you set the directory holding the temporary body file.
func WithStorePath(path string) EncoderOption {
	return func(o *encoderOptions) {
		o.store = path
	}
}

func WithRequiredFeatures(features ...string) EncoderOption {
	return func(o *encoderOptions) {
		o.requiredFeatures = append(o.requiredFeatures, features...)
	}
}

func WithOptionalFeatures(features ...string) EncoderOption {
	return func(o *encoderOptions) {
		o.optionalFeatures = append(o.optionalFeatures, features...)
	}
}

func WithWritingProgram(program string) EncoderOption {
	return func(o *encoderOptions) {
		o.writingProgram = program
	}
}

func WithSource(source string) EncoderOption {
	return func(o *encoderOptions) {
		o.source = source
	}
}

func WithOsmosisReplicationTimestamp(timestamp time.Time) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationTimestamp = timestamp
	}
}

func WithOsmosisReplicationSequenceNumber(sequenceNumber int64) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationSequenceNumber = sequenceNumber
	}
}

func WithOsmosisReplicationBaseURL(url string) EncoderOption {
	return func(o *encoderOptions) {
		o.osmosisReplicationBaseURL = url
	}
}

// defaultEncoderConfig provides a default configuration for encoders.
var defaultEncoderConfig = encoderOptions{
	compression:    DefaultBlobCompression,
	block:          encoder.DefaultBlockConfig,
	nCPU:           DefaultNCpu(),
	writingProgram: "osmscan",
}

func newEncoderOptions(opts []EncoderOption) encoderOptions {
	cfg := defaultEncoderConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.nCPU == 0 {
		cfg.nCPU = DefaultNCpu()
	}

	if len(cfg.requiredFeatures) == 0 {
		cfg.requiredFeatures = []string{"OsmSchema-V0.6"}
		if !cfg.block.PlainNodes {
			cfg.requiredFeatures = append(cfg.requiredFeatures, "DenseNodes")
		}
	}

	return cfg
}

func (o *encoderOptions) header() model.Header {
	return model.Header{
		RequiredFeatures:                 o.requiredFeatures,
		OptionalFeatures:                 o.optionalFeatures,
		WritingProgram:                   o.writingProgram,
		Source:                           o.source,
		OsmosisReplicationTimestamp:      o.osmosisReplicationTimestamp,
		OsmosisReplicationSequenceNumber: o.osmosisReplicationSequenceNumber,
		OsmosisReplicationBaseURL:        o.osmosisReplicationBaseURL,
	}
}
