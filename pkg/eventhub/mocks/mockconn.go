/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocks contains mock implementations of the hub's collaborators
// along with helpers that produce blocks in the deliver wire format.
package mocks

import (
	"sync"
	"sync/atomic"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-channel-events/internal/protoutil"
	"github.com/securekey/fabric-channel-events/pkg/common/options"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
)

// MockPeer is a mock event source endpoint
type MockPeer struct {
	MockURL string
}

// NewMockPeer returns a mock peer with the given URL
func NewMockPeer(url string) *MockPeer {
	return &MockPeer{MockURL: url}
}

// URL returns the peer's event delivery address
func (p *MockPeer) URL() string {
	return p.MockURL
}

// MockSigningIdentity is a mock identity that produces static signatures
type MockSigningIdentity struct {
	SignErr error
}

// Sign returns a static signature
func (m *MockSigningIdentity) Sign(message []byte) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return []byte("signature"), nil
}

// Serialize returns static creator bytes
func (m *MockSigningIdentity) Serialize() ([]byte, error) {
	return []byte("creator"), nil
}

// MockConnection is a fake connection to the deliver server. Events given to
// ProduceEvent are delivered to the hub's dispatch loop through Receive.
type MockConnection struct {
	sourceURL string
	eventch   chan interface{}
	closed    int32
	sendErr   error

	mutex     sync.Mutex
	envelopes []*cb.Envelope
}

// NewMockConnection returns a new MockConnection
func NewMockConnection(sourceURL string) *MockConnection {
	return &MockConnection{
		sourceURL: sourceURL,
		eventch:   make(chan interface{}, 100),
	}
}

// SetSendError causes subsequent Send calls to fail with the given error
func (c *MockConnection) SetSendError(err error) {
	c.sendErr = err
}

// ProduceEvent posts an event to the connection's stream. Events produced
// after the connection is closed are dropped.
func (c *MockConnection) ProduceEvent(event interface{}) {
	if c.Closed() {
		return
	}
	c.eventch <- event
}

// Send records the signed seek envelope
func (c *MockConnection) Send(env *cb.Envelope) error {
	if c.Closed() {
		return errors.New("connection is closed")
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.envelopes = append(c.envelopes, env)
	return nil
}

// Envelopes returns the envelopes given to Send
func (c *MockConnection) Envelopes() []*cb.Envelope {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	envelopes := make([]*cb.Envelope, len(c.envelopes))
	copy(envelopes, c.envelopes)
	return envelopes
}

// LastSeekInfo unmarshals the SeekInfo from the last envelope given to Send
func (c *MockConnection) LastSeekInfo() (*ab.SeekInfo, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.envelopes) == 0 {
		return nil, errors.New("no seek envelope was sent")
	}
	payload, err := protoutil.UnmarshalPayload(c.envelopes[len(c.envelopes)-1].Payload)
	if err != nil {
		return nil, err
	}
	seekInfo := &ab.SeekInfo{}
	if err := proto.Unmarshal(payload.Data, seekInfo); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling SeekInfo")
	}
	return seekInfo, nil
}

// Receive forwards produced events to the given channel until the
// connection is closed
func (c *MockConnection) Receive(eventch chan<- interface{}) {
	for event := range c.eventch {
		eventch <- event
	}
}

// Close closes the connection. Close is idempotent.
func (c *MockConnection) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	close(c.eventch)
}

// Closed returns true if the connection has been closed
func (c *MockConnection) Closed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// ConnProviderFactory creates mock connection providers and remembers the
// connections they hand out
type ConnProviderFactory struct {
	mutex       sync.Mutex
	connections []*MockConnection
	connectErr  error
}

// NewConnProviderFactory returns a new ConnProviderFactory
func NewConnProviderFactory() *ConnProviderFactory {
	return &ConnProviderFactory{}
}

// SetConnectError causes the provider to fail with the given error
func (f *ConnProviderFactory) SetConnectError(err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.connectErr = err
}

// Provider returns a ConnectionProvider that hands out a fresh
// MockConnection on every call
func (f *ConnProviderFactory) Provider() api.ConnectionProvider {
	return func(channelID string, peer api.Peer, fullBlock bool, opts ...options.Opt) (api.Connection, error) {
		f.mutex.Lock()
		defer f.mutex.Unlock()
		if f.connectErr != nil {
			return nil, f.connectErr
		}
		conn := NewMockConnection(peer.URL())
		f.connections = append(f.connections, conn)
		return conn, nil
	}
}

// Connection returns the i'th connection handed out by the provider
func (f *ConnProviderFactory) Connection(i int) *MockConnection {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if i >= len(f.connections) {
		return nil
	}
	return f.connections[i]
}

// NumConnections returns the number of connections handed out
func (f *ConnProviderFactory) NumConnections() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.connections)
}
