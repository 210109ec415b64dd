//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"fmt"
)

// Errno defines the protocol error codes.
type Errno int32

// Error codes.
const (
	MalformedInput Errno = iota + 1
	IdentityOutOfRange
	DuplicateIdentity
	TerminalConflict
	AuthenticationFailed
)

var errnoNames = map[Errno]string{
	MalformedInput:       "MalformedInput",
	IdentityOutOfRange:   "IdentityOutOfRange",
	DuplicateIdentity:    "DuplicateIdentity",
	TerminalConflict:     "TerminalConflict",
	AuthenticationFailed: "AuthenticationFailed",
}

var errnoDescriptions = map[Errno]string{
	MalformedInput:       "Malformed input vector",
	IdentityOutOfRange:   "Provider identity out of range",
	DuplicateIdentity:    "Provider identity already connected",
	TerminalConflict:     "Conflicting provider counts",
	AuthenticationFailed: "Output authentication failed",
}

func (err Errno) Error() string {
	return err.String()
}

func (err Errno) String() string {
	name, ok := errnoNames[err]
	if ok {
		desc, ok := errnoDescriptions[err]
		if ok {
			return name + ": " + desc
		}
		return name
	}
	return fmt.Sprintf("{Errno %d}", err)
}

// Name returns the symbolic name of the error code.
func (err Errno) Name() string {
	name, ok := errnoNames[err]
	if ok {
		return name
	}
	return fmt.Sprintf("{Errno %d}", err)
}

// Description returns a short description about the error code.
func (err Errno) Description() string {
	desc, ok := errnoDescriptions[err]
	if ok {
		return desc
	}
	return fmt.Sprintf("{Errno %d}", err)
}
