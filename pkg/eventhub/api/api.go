/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api defines the interfaces of the collaborators consumed by the
// channel event hub, along with the event and callback types delivered to
// registered listeners. The identity, peer directory and transport are
// injected through these interfaces so that tests can substitute them
// without touching hub internals.
package api

import (
	cb "github.com/hyperledger/fabric-protos-go/common"

	"github.com/securekey/fabric-channel-events/pkg/common/options"
)

// SigningIdentity signs the seek request sent to the deliver server.
type SigningIdentity interface {
	// Sign signs the given message and returns the signature
	Sign(message []byte) ([]byte, error)

	// Serialize returns the serialized identity (creator) bytes
	Serialize() ([]byte, error)
}

// Peer is the endpoint of one ledger node as supplied by the peer directory.
type Peer interface {
	// URL returns the address of the peer's event delivery endpoint
	URL() string
}

// Connection is a connection to the deliver server.
type Connection interface {
	// Send sends the given signed seek envelope to the deliver server
	Send(env *cb.Envelope) error

	// Receive reads events from the stream and posts them to eventch until
	// the stream ends. Stream failures are posted as *Disconnected events.
	Receive(eventch chan<- interface{})

	// Close closes the connection. Close is idempotent.
	Close()

	// Closed returns true if the connection has been closed
	Closed() bool
}

// Disconnected is posted by a Connection when the stream fails
type Disconnected struct {
	Err error
}

// ConnectionProvider creates a new connection to the event delivery endpoint
// of the given peer. If fullBlock is true then the connection delivers full
// blocks, otherwise filtered blocks.
type ConnectionProvider func(channelID string, peer Peer, fullBlock bool, opts ...options.Opt) (Connection, error)
