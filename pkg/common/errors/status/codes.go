/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	cb "github.com/hyperledger/fabric-protos-go/common"
	grpcCodes "google.golang.org/grpc/codes"
)

// Code represents a status code
type Code uint32

const (
	// OK is returned on success.
	OK Code = 0

	// Unknown represents status codes that are uncategorized or unknown
	Unknown Code = 1

	// ConnectionFailed is returned when a network connection attempt fails
	ConnectionFailed Code = 2

	// Timeout operation timed out
	Timeout Code = 3

	// InvalidArgument is returned when the parameters of a call are malformed.
	// The failure is local and synchronous and is never retried.
	InvalidArgument Code = 4

	// AlreadyRegistered is returned when a listener is registered under a key
	// that already has a listener
	AlreadyRegistered Code = 5

	// ReplayConflict is returned when a registration with replay bounds
	// violates the single-replay-registration rule or arrives after the hub
	// has connected
	ReplayConflict Code = 6

	// RegistrationsClosed is returned when registering on a hub that has been
	// permanently closed
	RegistrationsClosed Code = 7

	// InvalidRange is returned when the starting block number is greater than
	// the ending block number
	InvalidRange Code = 8

	// NotFound is returned when unregistering a listener that does not exist
	NotFound Code = 9

	// MissingPeer is returned when connecting a hub that has no target peer
	MissingPeer Code = 10

	// StreamError indicates a failure on the event stream. It is reported
	// through the onError callback of every active registration.
	StreamError Code = 11

	// DecodeFailure indicates that a block or transaction could not be
	// unmarshalled. The affected unit is skipped; the hub stays connected.
	DecodeFailure Code = 12

	// ReplayComplete is the benign cause handed to listeners when the hub
	// auto-disconnects after the requested ending block has been delivered
	ReplayComplete Code = 13

	// NoBlockSeen is returned when querying the last block number before any
	// block has been received
	NoBlockSeen Code = 14

	// UnknownMessageType indicates that the deliver server sent a message of
	// an unexpected shape. The message is ignored.
	UnknownMessageType Code = 15
)

// CodeName maps the codes in this package to human-readable strings
var CodeName = map[int32]string{
	0:  "OK",
	1:  "UNKNOWN",
	2:  "CONNECTION_FAILED",
	3:  "TIMEOUT",
	4:  "INVALID_ARGUMENT",
	5:  "ALREADY_REGISTERED",
	6:  "REPLAY_CONFLICT",
	7:  "REGISTRATIONS_CLOSED",
	8:  "INVALID_RANGE",
	9:  "NOT_FOUND",
	10: "MISSING_PEER",
	11: "STREAM_ERROR",
	12: "DECODE_FAILURE",
	13: "REPLAY_COMPLETE",
	14: "NO_BLOCK_SEEN",
	15: "UNKNOWN_MESSAGE_TYPE",
}

// ToInt32 cast to int32
func (c Code) ToInt32() int32 {
	return int32(c)
}

func (c Code) String() string {
	if s, ok := CodeName[c.ToInt32()]; ok {
		return s
	}
	return Unknown.String()
}

// ToSDKStatusCode cast to sdk status code
func ToSDKStatusCode(c int32) Code {
	return Code(c)
}

// ToGRPCStatusCode cast to gRPC status code
func ToGRPCStatusCode(c int32) grpcCodes.Code {
	return grpcCodes.Code(c)
}

// ToFabricCommonStatusCode cast to common.Status
func ToFabricCommonStatusCode(c int32) cb.Status {
	return cb.Status(c)
}
