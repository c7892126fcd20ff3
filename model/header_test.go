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

package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmscan/model"
)

func TestHeaderJSON(t *testing.T) {
	h := model.Header{
		BoundingBox:                      &model.BoundingBox{Top: 35.7, Left: 139.6, Bottom: 35.6, Right: 139.8},
		RequiredFeatures:                 []string{"OsmSchema-V0.6", "DenseNodes"},
		WritingProgram:                   "osmscan",
		OsmosisReplicationTimestamp:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		OsmosisReplicationSequenceNumber: 4221,
	}

	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"bounding_box": {"top": 35.7, "left": 139.6, "bottom": 35.6, "right": 139.8},
		"required_features": ["OsmSchema-V0.6", "DenseNodes"],
		"writing_program": "osmscan",
		"osmosis_replication_timestamp": "2025-01-02T03:04:05Z",
		"osmosis_replication_sequence_number": 4221
	}`, string(b))

	var decoded model.Header
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, h, decoded)
}
