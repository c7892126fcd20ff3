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
	"context"
	"errors"
	"io"
	"os"

	"m4o.io/osmscan/handler"
	"m4o.io/osmscan/model"
)

// Scan feeds every entity of the PBF stream read from rdr to sink, in file
// order.  The scan stops at the first decoding error or when ctx is done;
// cancellation is checked between blocks.
func Scan(ctx context.Context, rdr io.Reader, sink handler.Sink, opts ...DecoderOption) (model.Header, error) {
	d, err := NewDecoder(ctx, rdr, opts...)
	if err != nil {
		return model.Header{}, err
	}
	defer d.Close()

	for {
		if err := ctx.Err(); err != nil {
			return d.Header, err
		}

		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			return d.Header, nil
		} else if err != nil {
			return d.Header, err
		}

		for _, e := range entities {
			handler.Observe(sink, e)
		}
	}
}

// ScanFile opens the PBF file at path and scans it into sink.
func ScanFile(ctx context.Context, path string, sink handler.Sink, opts ...DecoderOption) (model.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Header{}, err
	}
	defer f.Close()

	return Scan(ctx, f, sink, opts...)
}

// CountFile counts the nodes, ways and relations of the PBF file at path.
func CountFile(ctx context.Context, path string, opts ...DecoderOption) (handler.Counts, error) {
	sink := handler.NewCountingSink()
	if _, err := ScanFile(ctx, path, sink, opts...); err != nil {
		return handler.Counts{}, err
	}

	return sink.Counts(), nil
}

// FilterFile collects the nodes and ways of the PBF file at path whose tags
// match p.
func FilterFile(ctx context.Context, path string, p handler.Predicate, opts ...DecoderOption) (*handler.TagFilterSink, error) {
	sink := handler.NewTagFilterSink(p)
	if _, err := ScanFile(ctx, path, sink, opts...); err != nil {
		return nil, err
	}

	return sink, nil
}
