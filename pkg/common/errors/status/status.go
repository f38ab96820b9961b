/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status defines metadata for errors returned by the channel event
// hub. Status codes are divided by group, where each group represents the
// component that produced the error.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status provides additional information about an unsuccessful operation.
// Essentially, this object contains metadata about an error returned by
// the event hub.
type Status struct {
	// Group status group
	Group Group
	// Code status code
	Code int32
	// Message status message
	Message string
	// Details any additional status details
	Details []interface{}
}

// Group of status to help users infer status codes from various components
type Group int32

const (
	// UnknownStatus unknown status group
	UnknownStatus Group = iota

	// GRPCTransportStatus is the status associated with requests made over
	// gRPC connections
	GRPCTransportStatus

	// EventServerStatus is the status returned by the deliver/event server
	EventServerStatus

	// ClientStatus is the status inferred locally by the event hub client,
	// such as argument validation and registration precondition failures
	ClientStatus
)

// GroupName maps the groups in this package to human-readable strings
var GroupName = map[int32]string{
	0: "Unknown",
	1: "gRPC Transport Status",
	2: "Event Server Status",
	3: "Client Status",
}

func (g Group) String() string {
	if s, ok := GroupName[int32(g)]; ok {
		return s
	}
	return UnknownStatus.String()
}

// New returns a new Status
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// FromError returns a Status representing err if available,
// otherwise it returns nil, false.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: OK.ToInt32()}, true
	}
	if s, ok := err.(*Status); ok {
		return s, true
	}
	unwrappedErr := errors.Cause(err)
	if s, ok := unwrappedErr.(*Status); ok {
		return s, true
	}
	return nil, false
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group.String(), s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case GRPCTransportStatus:
		return ToGRPCStatusCode(s.Code).String()
	case EventServerStatus:
		return ToFabricCommonStatusCode(s.Code).String()
	case ClientStatus:
		return ToSDKStatusCode(s.Code).String()
	default:
		return Unknown.String()
	}
}

// IsCode returns true if err is a client Status carrying the given code
func IsCode(err error, code Code) bool {
	s, ok := FromError(err)
	if !ok {
		return false
	}
	return s.Group == ClientStatus && s.Code == code.ToInt32()
}
