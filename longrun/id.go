package longrun

import "github.com/google/uuid"

// RequestID identifies one long-running request. IDs are random (UUIDv4) and
// never reused.
type RequestID string

// NewRequestID returns a fresh RequestID.
func NewRequestID() RequestID { return RequestID(uuid.NewString()) }

func (id RequestID) String() string { return string(id) }
