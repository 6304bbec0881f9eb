// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package value

import (
	"github.com/google/uuid"

	"github.com/probelang/probe-lang/internal/hash"
)

// Any is the payload behind a KindAny shared value: an opaque host object
// identified by a type hash the host registered, carrying whatever payload
// the host supplied. InstanceID gives every opaque object a stable debug
// identity independent of its backing pointer, used by default DEBUG_FMT
// formatting and logging.
type Any struct {
	TypeHash   hash.Hash
	InstanceID string
	Payload    interface{}
}

// NewAny constructs an Any, assigning a fresh uuid-derived InstanceID when
// the host does not supply its own identity (instanceID == "").
func NewAny(typeHash hash.Hash, instanceID string, payload interface{}) *Any {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &Any{TypeHash: typeHash, InstanceID: instanceID, Payload: payload}
}
