package model

import "errors"

// Sentinel errors shared across packages. Dispatch-path errors degrade to
// "no notification sent"; only the manual send endpoint surfaces them to a
// caller.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrRoomNotSyncable = errors.New("room is not synchronizable")
	ErrInvalidToken    = errors.New("fcm token missing or malformed")
	ErrTokenRejected   = errors.New("fcm token rejected by transport")
)

// Error codes used in HTTP error envelopes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)
