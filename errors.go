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
	"m4o.io/osmscan/internal/decoder"
	"m4o.io/osmscan/internal/wire"
)

// Typed decoding errors, reachable with errors.As.
type (
	TruncatedInputError     = wire.TruncatedInputError
	MalformedVarintError    = wire.MalformedVarintError
	BlobError               = decoder.BlobError
	BlobSizeMismatchError   = decoder.BlobSizeMismatchError
	MixedGroupError         = decoder.MixedGroupError
	UnsupportedFeatureError = decoder.UnsupportedFeatureError
)

var (
	ErrMalformedField         = wire.ErrMalformedField
	ErrMalformedBlock         = decoder.ErrMalformedBlock
	ErrMissingHeader          = decoder.ErrMissingHeader
	ErrUnknownCompressionType = decoder.ErrUnknownCompressionType
	ErrBlobHeaderTooLarge     = decoder.ErrBlobHeaderTooLarge
	ErrBlobTooLarge           = decoder.ErrBlobTooLarge
)
