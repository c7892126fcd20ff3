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

package handler

import (
	"fmt"
)

// Predicate matches the tags of an entity against a key and, optionally, a
// value.  A nil Value matches any value of the key.
type Predicate struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// MatchKey creates a predicate matching any entity carrying key.
func MatchKey(key string) Predicate {
	return Predicate{Key: key}
}

// MatchTag creates a predicate matching entities where key equals value.
func MatchTag(key, value string) Predicate {
	return Predicate{Key: key, Value: &value}
}

// Matches reports whether tags satisfy the predicate.
func (p Predicate) Matches(tags map[string]string) bool {
	v, ok := tags[p.Key]
	if !ok {
		return false
	}

	return p.Value == nil || v == *p.Value
}

func (p Predicate) String() string {
	if p.Value == nil {
		return fmt.Sprintf("%s=(any value)", p.Key)
	}

	return fmt.Sprintf("%s=%s", p.Key, *p.Value)
}
