/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package eventhub

import (
	cb "github.com/hyperledger/fabric-protos-go/common"

	"github.com/securekey/fabric-channel-events/pkg/common/options"
	"github.com/securekey/fabric-channel-events/pkg/core/config"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/replay"
)

// hubParams holds the options given to New
type hubParams struct {
	connectionProvider api.ConnectionProvider
	config             *config.EventConfig
}

func defaultHubParams() *hubParams {
	return &hubParams{
		config: config.Default(),
	}
}

// registrationParams holds the options given to RegisterXEvent. The
// unregister/disconnect overrides are pointers so that an explicit option can
// be distinguished from the per-registration default.
type registrationParams struct {
	start      replay.Bound
	end        replay.Bound
	unregister *bool
	disconnect *bool
}

// connectParams holds the options given to Connect
type connectParams struct {
	start           replay.Bound
	end             replay.Bound
	target          api.Peer
	signedEvent     *cb.Envelope
	fullBlock       bool
	ccEventsAsArray bool
}

// WithConnectionProvider configures the hub with the given connection
// provider. Used by tests to substitute the transport.
func WithConnectionProvider(value api.ConnectionProvider) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(connectionProviderSetter); ok {
			setter.SetConnectionProvider(value)
		}
	}
}

// WithEventConfig configures the hub with the given event configuration
func WithEventConfig(value *config.EventConfig) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(eventConfigSetter); ok {
			setter.SetEventConfig(value)
		}
	}
}

// WithStartBlock indicates the block number from which events are to be
// replayed
func WithStartBlock(value uint64) options.Opt {
	return withStartBound(replay.Specified(value))
}

// WithStartOldest replays events from the first block on the channel
func WithStartOldest() options.Opt {
	return withStartBound(replay.Oldest())
}

// WithStartNewest delivers events starting at the last block on the channel
func WithStartNewest() options.Opt {
	return withStartBound(replay.Newest())
}

// WithStartLastSeen replays events from the last block number seen by the
// hub. If no block has been seen yet the bound resolves to newest.
func WithStartLastSeen() options.Opt {
	return withStartBound(replay.LastSeen())
}

// WithEndBlock indicates the block number at which event delivery is to end
func WithEndBlock(value uint64) options.Opt {
	return withEndBound(replay.Specified(value))
}

// WithEndNewest ends event delivery once the last block on the channel has
// been delivered
func WithEndNewest() options.Opt {
	return withEndBound(replay.Newest())
}

// WithUnregister overrides the registration's default auto-unregister flag
func WithUnregister(value bool) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(unregisterSetter); ok {
			setter.SetUnregister(value)
		}
	}
}

// WithDisconnect overrides the registration's default disconnect flag. A
// listener with disconnect set shuts the hub down after the block that fired
// it has been fully dispatched.
func WithDisconnect(value bool) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(disconnectSetter); ok {
			setter.SetDisconnect(value)
		}
	}
}

// WithTarget connects to the given peer instead of the hub's bound peer
func WithTarget(value api.Peer) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(targetSetter); ok {
			setter.SetTarget(value)
		}
	}
}

// WithSignedEvent connects using the given pre-signed seek envelope instead
// of signing one with the hub's identity
func WithSignedEvent(value *cb.Envelope) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(signedEventSetter); ok {
			setter.SetSignedEvent(value)
		}
	}
}

// WithFullBlocks indicates whether the hub is to receive full blocks
// (true) or filtered blocks (false). The default is filtered.
func WithFullBlocks(value bool) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(fullBlocksSetter); ok {
			setter.SetFullBlocks(value)
		}
	}
}

// WithCCEventsAsArray delivers all of a block's matching chaincode events to
// a listener in a single callback invocation instead of one invocation per
// event
func WithCCEventsAsArray() options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(ccEventsAsArraySetter); ok {
			setter.SetCCEventsAsArray(true)
		}
	}
}

func withStartBound(value replay.Bound) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(startBoundSetter); ok {
			setter.SetStartBound(value)
		}
	}
}

func withEndBound(value replay.Bound) options.Opt {
	return func(p options.Params) {
		if setter, ok := p.(endBoundSetter); ok {
			setter.SetEndBound(value)
		}
	}
}

type connectionProviderSetter interface {
	SetConnectionProvider(value api.ConnectionProvider)
}

type eventConfigSetter interface {
	SetEventConfig(value *config.EventConfig)
}

type startBoundSetter interface {
	SetStartBound(value replay.Bound)
}

type endBoundSetter interface {
	SetEndBound(value replay.Bound)
}

type unregisterSetter interface {
	SetUnregister(value bool)
}

type disconnectSetter interface {
	SetDisconnect(value bool)
}

type targetSetter interface {
	SetTarget(value api.Peer)
}

type signedEventSetter interface {
	SetSignedEvent(value *cb.Envelope)
}

type fullBlocksSetter interface {
	SetFullBlocks(value bool)
}

type ccEventsAsArraySetter interface {
	SetCCEventsAsArray(value bool)
}

func (p *hubParams) SetConnectionProvider(value api.ConnectionProvider) {
	p.connectionProvider = value
}

func (p *hubParams) SetEventConfig(value *config.EventConfig) {
	p.config = value
}

func (p *registrationParams) SetStartBound(value replay.Bound) {
	logger.Debugf("StartBound: %s", value)
	p.start = value
}

func (p *registrationParams) SetEndBound(value replay.Bound) {
	logger.Debugf("EndBound: %s", value)
	p.end = value
}

func (p *registrationParams) SetUnregister(value bool) {
	p.unregister = &value
}

func (p *registrationParams) SetDisconnect(value bool) {
	p.disconnect = &value
}

func (p *connectParams) SetStartBound(value replay.Bound) {
	logger.Debugf("StartBound: %s", value)
	p.start = value
}

func (p *connectParams) SetEndBound(value replay.Bound) {
	logger.Debugf("EndBound: %s", value)
	p.end = value
}

func (p *connectParams) SetTarget(value api.Peer) {
	p.target = value
}

func (p *connectParams) SetSignedEvent(value *cb.Envelope) {
	p.signedEvent = value
}

func (p *connectParams) SetFullBlocks(value bool) {
	logger.Debugf("FullBlocks: %t", value)
	p.fullBlock = value
}

func (p *connectParams) SetCCEventsAsArray(value bool) {
	logger.Debugf("CCEventsAsArray: %t", value)
	p.ccEventsAsArray = value
}
