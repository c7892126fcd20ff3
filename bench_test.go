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
	"bytes"
	"context"
	"os"
	"runtime/trace"
	"strconv"
	"testing"

	"m4o.io/osmscan/handler"
	"m4o.io/osmscan/model"
)

func BenchmarkScan(b *testing.B) {
	var entities []model.Entity
	for i := range 200_000 {
		entities = append(entities, &model.Node{
			ID:   model.ID(i),
			Lat:  model.Degrees(i%180 - 90),
			Lon:  model.Degrees(i%360 - 180),
			Tags: map[string]string{"amenity": []string{"cafe", "restaurant", "bench"}[i%3]},
		})
	}

	data := encodePBF(b, entities)

	if t, err := strconv.ParseBool(os.Getenv("PBF_TRACE")); err == nil && t {
		f, err := os.Create("trace.out")
		if err != nil {
			b.Fatalf("Error opening trace file: %v", err)
		}
		defer f.Close()

		_ = trace.Start(f)
		defer trace.Stop()
	}

	pbs, _ := strconv.Atoi(os.Getenv("PBF_PROTO_BUFFER_SIZE"))
	ncpu, _ := strconv.Atoi(os.Getenv("PBF_NCPU"))

	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		sink := handler.NewTagFilterSink(handler.MatchTag("amenity", "restaurant"))

		if _, err := Scan(context.Background(), bytes.NewReader(data), sink,
			WithProtoBufferSize(pbs),
			WithNCpus(uint16(ncpu))); err != nil {
			b.Fatal(err)
		}
	}
}
