/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package eventhub provides the channel event hub, through which an
// application receives block, transaction-status and chaincode events from
// the deliver service of one peer on one channel. Listeners are registered
// before or after connecting; optional start/end block options replay
// historical blocks to a single listener.
//
// All hub state is serialized behind one mutex. Inbound stream events are
// handled on a dispatch goroutine that is created per connection attempt;
// every event carries the stream generation it was read under and is dropped
// if a disconnect or reconnect has happened since. Listener callbacks are
// always invoked after the mutex has been released, so a callback may call
// back into the hub.
package eventhub

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	cb "github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/securekey/fabric-channel-events/internal/protoutil"
	"github.com/securekey/fabric-channel-events/pkg/common/errors/status"
	"github.com/securekey/fabric-channel-events/pkg/common/options"
	"github.com/securekey/fabric-channel-events/pkg/core/config"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/connection"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/dispatcher"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/registry"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/replay"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/seek"
)

var logger = logging.MustGetLogger("eventhub")

// ConnectionState is the state of the hub connection
type ConnectionState int32

const (
	// Disconnected indicates that the hub is not connected
	Disconnected ConnectionState = iota
	// Connecting indicates that a connect is in progress
	Connecting
	// Connected indicates that the hub is connected and receiving events
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

type regKind int

const (
	regNone regKind = iota
	regBlock
	regTx
	regCC
)

// Hub is a channel event hub. It is bound to one channel and one peer and
// is safe for concurrent use.
type Hub struct {
	channelID          string
	identity           api.SigningIdentity
	peer               api.Peer
	connectionProvider api.ConnectionProvider
	config             *config.EventConfig

	connState int32

	mutex      sync.Mutex
	registry   *registry.Registry
	planner    *replay.Planner
	dispatcher *dispatcher.Dispatcher
	conn       api.Connection
	peerURL    string
	generation uint64

	lastBlock           uint64
	blockSeen           bool
	endingBlock         replay.Bound
	endingBlockSeen     bool
	endingBlockIsNewest bool
	connectedWithBounds bool

	startStopPlan *replay.Plan
	startStopKind regKind
	startStopKey  string

	connectOpts   []options.Opt
	connectTimer  *time.Timer
	readTimer     *time.Timer
	disconnecting bool
	closed        bool
}

// New returns a channel event hub bound to the given channel and peer. The
// identity signs the seek request sent on connect.
func New(channelID string, identity api.SigningIdentity, peer api.Peer, opts ...options.Opt) *Hub {
	params := defaultHubParams()
	options.Apply(params, opts)

	provider := params.connectionProvider
	if provider == nil {
		provider = connection.New
	}

	reg := registry.New()

	return &Hub{
		channelID:          channelID,
		identity:           identity,
		peer:               peer,
		connectionProvider: provider,
		config:             params.config,
		registry:           reg,
		planner:            replay.New(),
		dispatcher:         dispatcher.New(reg),
	}
}

// ConnectionState returns the current state of the hub connection
func (h *Hub) ConnectionState() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&h.connState))
}

// IsConnected returns true if the hub is connected and receiving events
func (h *Hub) IsConnected() bool {
	return h.ConnectionState() == Connected
}

// LastBlockNumber returns the number of the last block received. Returns a
// NoBlockSeen status if no block has been received yet.
func (h *Hub) LastBlockNumber() (uint64, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.blockSeen {
		return 0, status.New(status.ClientStatus, status.NoBlockSeen.ToInt32(),
			"no block has been received yet", nil)
	}
	return h.lastBlock, nil
}

// Connect opens a stream to the peer's deliver service and sends the signed
// seek request. Connect returns once the request has been submitted; events
// arrive asynchronously on the registered listeners. Calling Connect while a
// connect is in flight or the hub is already connected is a no-op.
func (h *Hub) Connect(opts ...options.Opt) error {
	if !h.setConnectionState(Disconnected, Connecting) {
		logger.Debugf("Connect is not necessary. Connection state: %s", h.ConnectionState())
		return nil
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if err := h.connectLocked(opts); err != nil {
		atomic.StoreInt32(&h.connState, int32(Disconnected))
		return err
	}
	return nil
}

// Reconnect disconnects the hub if necessary and connects again with the
// options of the previous Connect
func (h *Hub) Reconnect() error {
	h.Disconnect()

	h.mutex.Lock()
	opts := h.connectOpts
	h.mutex.Unlock()

	return h.Connect(opts...)
}

// Disconnect closes the stream, invokes every listener's error callback and
// clears all registrations. Disconnect is a no-op if the hub is not
// connected.
func (h *Hub) Disconnect() {
	h.mutex.Lock()
	if h.ConnectionState() == Disconnected {
		h.mutex.Unlock()
		logger.Debug("Already disconnected")
		return
	}
	notify := h.disconnectLocked(errors.New("event hub has been shut down"))
	h.mutex.Unlock()
	notify()
}

// Close disconnects the hub and permanently refuses further registrations
func (h *Hub) Close() {
	h.mutex.Lock()
	h.closed = true
	notify := func() {}
	if h.ConnectionState() != Disconnected {
		notify = h.disconnectLocked(errors.New("event hub has been closed"))
	}
	h.mutex.Unlock()
	notify()
}

// CheckConnection is a liveness probe, usable on a timer. If the underlying
// connection is no longer usable then the hub is disconnected and, if
// forceReconnect is set, connected again. CheckConnection never returns an
// error; failures are reported through the listener error callbacks and the
// log.
func (h *Hub) CheckConnection(forceReconnect bool) {
	h.mutex.Lock()
	healthy := h.ConnectionState() == Connected && h.conn != nil && !h.conn.Closed()
	notify := func() {}
	if !healthy && h.ConnectionState() == Connected {
		logger.Warningf("The event stream is no longer usable. Disconnecting.")
		notify = h.disconnectLocked(status.New(status.ClientStatus, status.StreamError.ToInt32(),
			"the event stream is no longer usable", nil))
	}
	h.mutex.Unlock()
	notify()

	if healthy {
		logger.Debug("Connection is alive")
		return
	}
	if forceReconnect {
		if err := h.Reconnect(); err != nil {
			logger.Warningf("Error reconnecting event hub: %s", err)
		}
	}
}

// RegisterBlockEvent registers a listener that is invoked for every accepted
// block. Returns the handle to pass to UnregisterBlockEvent.
func (h *Hub) RegisterBlockEvent(onEvent api.BlockCallback, onError api.ErrorCallback, opts ...options.Opt) (string, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return "", h.closedError()
	}

	p := &registrationParams{}
	options.Apply(p, opts)

	plan, err := h.planLocked(p)
	if err != nil {
		return "", err
	}

	unregister := boolOpt(p.unregister, false)
	reg := &registry.BlockReg{
		Event:      onEvent,
		Error:      onError,
		Unregister: unregister,
		Disconnect: boolOpt(p.disconnect, false),
	}
	id, err := h.registry.RegisterBlock(reg)
	if err != nil {
		h.planner.Release(plan)
		return "", err
	}

	h.attachPlanLocked(plan, regBlock, id, unregister, boolOpt(p.disconnect, plan.Class.HasEnd()), func() {
		if err := h.registry.UnregisterBlock(id, false); err != nil {
			logger.Warningf("Error unregistering block listener: %s", err)
		}
	})
	return id, nil
}

// UnregisterBlockEvent removes the block listener with the given handle.
// Returns a NotFound status if failIfMissing is set and there is no such
// listener.
func (h *Hub) UnregisterBlockEvent(handle string, failIfMissing bool) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if err := h.registry.UnregisterBlock(handle, failIfMissing); err != nil {
		return err
	}
	h.releaseStartStopLocked(regBlock, handle)
	return nil
}

// RegisterTxEvent registers a listener for the validation outcome of the
// given transaction id, or of every transaction if txID is "all". Returns
// the id under which the listener is stored. By default a specific-id
// listener is unregistered automatically after it fires.
func (h *Hub) RegisterTxEvent(txID string, onEvent api.TxCallback, onError api.ErrorCallback, opts ...options.Opt) (string, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return "", h.closedError()
	}

	p := &registrationParams{}
	options.Apply(p, opts)

	plan, err := h.planLocked(p)
	if err != nil {
		return "", err
	}

	unregister := boolOpt(p.unregister, strings.ToLower(txID) != registry.AllTransactions)
	reg := &registry.TxReg{
		TxID:       txID,
		Event:      onEvent,
		Error:      onError,
		Unregister: unregister,
		Disconnect: boolOpt(p.disconnect, false),
	}
	id, err := h.registry.RegisterTx(reg)
	if err != nil {
		h.planner.Release(plan)
		return "", err
	}

	h.attachPlanLocked(plan, regTx, id, unregister, boolOpt(p.disconnect, plan.Class.HasEnd()), func() {
		if err := h.registry.UnregisterTx(id, false); err != nil {
			logger.Warningf("Error unregistering transaction listener: %s", err)
		}
	})
	return id, nil
}

// UnregisterTxEvent removes the transaction listener with the given id
func (h *Hub) UnregisterTxEvent(txID string, failIfMissing bool) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if err := h.registry.UnregisterTx(txID, failIfMissing); err != nil {
		return err
	}
	h.releaseStartStopLocked(regTx, strings.ToLower(txID))
	return nil
}

// RegisterChaincodeEvent registers a listener for events emitted by the
// given chaincode whose event name matches eventFilter, a regular
// expression. Returns the handle to pass to UnregisterChaincodeEvent.
func (h *Hub) RegisterChaincodeEvent(ccID, eventFilter string, onEvent api.CCCallback, onError api.ErrorCallback, opts ...options.Opt) (string, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return "", h.closedError()
	}

	p := &registrationParams{}
	options.Apply(p, opts)

	plan, err := h.planLocked(p)
	if err != nil {
		return "", err
	}

	unregister := boolOpt(p.unregister, false)
	reg := &registry.CCReg{
		ChaincodeID: ccID,
		EventFilter: eventFilter,
		Event:       onEvent,
		Error:       onError,
		Unregister:  unregister,
		Disconnect:  boolOpt(p.disconnect, false),
	}
	id, err := h.registry.RegisterChaincode(reg)
	if err != nil {
		h.planner.Release(plan)
		return "", err
	}

	h.attachPlanLocked(plan, regCC, id, unregister, boolOpt(p.disconnect, plan.Class.HasEnd()), func() {
		if err := h.registry.UnregisterChaincode(id, false); err != nil {
			logger.Warningf("Error unregistering chaincode listener: %s", err)
		}
	})
	return id, nil
}

// UnregisterChaincodeEvent removes the chaincode listener with the given
// handle
func (h *Hub) UnregisterChaincodeEvent(handle string, failIfMissing bool) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if err := h.registry.UnregisterChaincode(handle, failIfMissing); err != nil {
		return err
	}
	h.releaseStartStopLocked(regCC, handle)
	return nil
}

func (h *Hub) connectLocked(opts []options.Opt) error {
	if h.closed {
		return h.closedError()
	}

	p := &connectParams{target: h.peer}
	options.Apply(p, opts)

	peer := p.target
	if peer == nil || peer.URL() == "" {
		return status.New(status.ClientStatus, status.MissingPeer.ToInt32(),
			"the event hub has no peer to connect to", nil)
	}

	seekInfo, end, connectBounds, err := h.resolveSeekLocked(p)
	if err != nil {
		return err
	}

	envelope := p.signedEvent
	if envelope == nil {
		envelope, err = h.createSeekEnvelope(seekInfo)
		if err != nil {
			return err
		}
	}

	h.generation++
	generation := h.generation

	conn, err := h.connectionProvider(h.channelID, peer, p.fullBlock,
		connection.WithConnectTimeout(h.config.ConnectTimeout),
		connection.WithKeepAliveParams(h.config.KeepAliveParams()),
		connection.WithFailFast(h.config.FailFast),
	)
	if err != nil {
		return status.New(status.ClientStatus, status.ConnectionFailed.ToInt32(),
			fmt.Sprintf("could not connect to %s: %s", peer.URL(), err), nil)
	}

	if err := conn.Send(envelope); err != nil {
		conn.Close()
		return status.New(status.ClientStatus, status.ConnectionFailed.ToInt32(),
			fmt.Sprintf("could not send seek request to %s: %s", peer.URL(), err), nil)
	}

	h.conn = conn
	h.peerURL = peer.URL()
	h.connectOpts = opts
	h.connectedWithBounds = connectBounds
	h.endingBlock = end
	h.endingBlockIsNewest = end.Type == replay.BoundNewest
	h.endingBlockSeen = false
	h.dispatcher.SetCCEventsAsArray(p.ccEventsAsArray)

	h.startConnectTimerLocked(generation)

	eventch := make(chan interface{}, int(h.config.EventBufferSize))
	go func() {
		conn.Receive(eventch)
		close(eventch)
	}()
	go h.dispatchLoop(eventch, generation)

	logger.Debugf("Submitted seek request to %s. Waiting for a response...", peer.URL())
	return nil
}

// resolveSeekLocked chooses the block range of the connection: connect-option
// bounds take precedence over a registration's replay bounds, which take
// precedence over the default of newest-onward.
func (h *Hub) resolveSeekLocked(p *connectParams) (*ab.SeekInfo, replay.Bound, bool, error) {
	start, end := p.start, p.end
	if start.Type == replay.BoundNone && end.Type == replay.BoundNone {
		if plan := h.planner.Active(); plan != nil {
			return seek.Info(plan.Start.SeekPosition(seek.Newest()), plan.End.SeekPosition(seek.Max())), plan.End, false, nil
		}
		return seek.InfoNewest(), replay.None(), false, nil
	}

	if h.planner.InStartStopMode() {
		return nil, replay.None(), false, status.New(status.ClientStatus, status.ReplayConflict.ToInt32(),
			"a registration with replay bounds already exists", nil)
	}

	start = h.resolveBoundLocked(start)
	end = h.resolveBoundLocked(end)
	if start.Type == replay.BoundSpecified && end.Type == replay.BoundSpecified && start.Number > end.Number {
		return nil, replay.None(), false, status.New(status.ClientStatus, status.InvalidRange.ToInt32(),
			fmt.Sprintf("starting block %d is greater than ending block %d", start.Number, end.Number), nil)
	}

	return seek.Info(start.SeekPosition(seek.Newest()), end.SeekPosition(seek.Max())), end, true, nil
}

func (h *Hub) resolveBoundLocked(b replay.Bound) replay.Bound {
	if b.Type != replay.BoundLastSeen {
		return b
	}
	if !h.blockSeen {
		return replay.Newest()
	}
	return replay.Specified(h.lastBlock)
}

func (h *Hub) createSeekEnvelope(seekInfo *ab.SeekInfo) (*cb.Envelope, error) {
	if h.identity == nil {
		return nil, status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"a signing identity is required to connect", nil)
	}

	creator, err := h.identity.Serialize()
	if err != nil {
		return nil, errors.WithMessage(err, "error serializing identity")
	}
	nonce, err := protoutil.RandomNonce()
	if err != nil {
		return nil, err
	}
	seekBytes, err := proto.Marshal(seekInfo)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling seek info")
	}

	channelHeader := protoutil.MakeChannelHeader(cb.HeaderType_DELIVER_SEEK_INFO, 0, h.channelID, 0)
	signatureHeader := &cb.SignatureHeader{Creator: creator, Nonce: nonce}

	payload := &cb.Payload{
		Header: protoutil.MakePayloadHeader(channelHeader, signatureHeader),
		Data:   seekBytes,
	}
	payloadBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling seek payload")
	}

	signature, err := h.identity.Sign(payloadBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "error signing seek request")
	}

	return &cb.Envelope{Payload: payloadBytes, Signature: signature}, nil
}

func (h *Hub) dispatchLoop(eventch <-chan interface{}, generation uint64) {
	for event := range eventch {
		h.handleEvent(event, generation)
	}
	logger.Debugf("Dispatch loop for stream generation %d has ended", generation)
}

func (h *Hub) handleEvent(event interface{}, generation uint64) {
	h.mutex.Lock()

	if generation != h.generation {
		logger.Debugf("Dropping event from stale stream (generation %d, current generation %d)", generation, h.generation)
		h.mutex.Unlock()
		return
	}

	h.stopConnectTimerLocked()
	if h.setConnectionState(Connecting, Connected) {
		logger.Debugf("Connected to %s", h.peerURL)
	}
	h.resetReadTimerLocked(generation)

	var notify []func()
	switch evt := event.(type) {
	case *pb.DeliverResponse:
		notify = h.handleDeliverResponseLocked(evt)
	case *api.Disconnected:
		logger.Warningf("The event stream has failed: %s. Disconnecting.", evt.Err)
		notify = append(notify, h.disconnectLocked(status.New(status.ClientStatus, status.StreamError.ToInt32(),
			fmt.Sprintf("the event stream has failed: %s", evt.Err), nil)))
	default:
		logger.Warningf("Received an unexpected message of type %T. Ignoring.", event)
	}

	h.mutex.Unlock()

	// listener callbacks run after the lock has been released so that a
	// callback may call back into the hub
	for _, invoke := range notify {
		invoke()
	}
}

func (h *Hub) handleDeliverResponseLocked(response *pb.DeliverResponse) []func() {
	switch t := response.Type.(type) {
	case *pb.DeliverResponse_Status:
		return h.handleStatusLocked(t.Status)
	case *pb.DeliverResponse_Block:
		result := h.dispatcher.HandleBlock(t.Block, h.peerURL)
		return h.afterBlockLocked(t.Block.Header.Number, result)
	case *pb.DeliverResponse_FilteredBlock:
		result := h.dispatcher.HandleFilteredBlock(t.FilteredBlock, h.peerURL)
		return h.afterBlockLocked(t.FilteredBlock.Number, result)
	default:
		logger.Warningf("Received an unexpected deliver response of type %T. Ignoring.", response.Type)
		return nil
	}
}

func (h *Hub) handleStatusLocked(code cb.Status) []func() {
	logger.Debugf("Received status response: %s", code)

	if code == cb.Status_SUCCESS {
		if h.endingBlockSeen || h.endingBlockIsNewest {
			return []func(){h.disconnectLocked(h.replayCompleteError())}
		}
		// an informational success before the requested range has been
		// delivered is ignored
		return nil
	}

	return []func(){h.disconnectLocked(status.New(status.EventServerStatus, int32(code),
		fmt.Sprintf("the deliver stream was terminated with status %s", code), nil))}
}

// afterBlockLocked updates the last block seen and runs the end-of-replay
// check, then applies any disconnect requested by a fired listener. The
// returned functions carry the deferred listener invocations; the block's
// event callbacks come before the error callbacks of a disconnect.
func (h *Hub) afterBlockLocked(blockNum uint64, result *dispatcher.Result) []func() {
	h.lastBlock = blockNum
	h.blockSeen = true

	notify := []func(){result.Invoke}

	if !h.endingBlockSeen && h.endingBlock.Type == replay.BoundSpecified && blockNum >= h.endingBlock.Number {
		logger.Debugf("The ending block %d has been seen", h.endingBlock.Number)
		h.endingBlockSeen = true

		if plan := h.startStopPlan; plan != nil {
			if plan.AutoUnregister && plan.Unregister != nil {
				plan.Unregister()
			}
			if plan.AutoDisconnect {
				return append(notify, h.disconnectLocked(h.replayCompleteError()))
			}
		}
	}

	if result.Disconnect {
		logger.Debugf("Disconnect requested by a registration after block %d", blockNum)
		notify = append(notify, h.disconnectLocked(errors.New("event hub was shut down by a registration with the disconnect option")))
	}
	return notify
}

// disconnectLocked tears down the connection state and returns a function
// that invokes the error callbacks of the drained listeners. The caller runs
// it after releasing the hub lock.
func (h *Hub) disconnectLocked(err error) func() {
	if h.disconnecting {
		return func() {}
	}
	h.disconnecting = true

	logger.Debugf("Disconnecting event hub: %s", err)

	h.stopTimersLocked()

	// events still queued from this stream become stale
	h.generation++

	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
	}

	callbacks := h.registry.Drain()
	h.planner.Reset()
	h.startStopPlan = nil
	h.startStopKind = regNone
	h.startStopKey = ""
	h.endingBlock = replay.None()
	h.endingBlockSeen = false
	h.endingBlockIsNewest = false
	h.connectedWithBounds = false

	atomic.StoreInt32(&h.connState, int32(Disconnected))
	h.disconnecting = false

	return func() {
		for _, callback := range callbacks {
			registry.InvokeError(callback, err)
		}
	}
}

func (h *Hub) planLocked(p *registrationParams) (*replay.Plan, error) {
	state := replay.State{
		Connected:           h.ConnectionState() != Disconnected,
		ConnectedWithBounds: h.connectedWithBounds,
		HasRegistrations:    h.registry.HasAny(),
		LastSeen:            h.lastBlock,
		BlockSeen:           h.blockSeen,
	}
	return h.planner.Plan(p.start, p.end, state)
}

// attachPlanLocked binds a bounded plan to the registration that owns it.
// The end bound is recorded on the hub so that the end-of-replay check runs
// regardless of which connect path was taken.
func (h *Hub) attachPlanLocked(plan *replay.Plan, kind regKind, key string, autoUnregister, autoDisconnect bool, remove func()) {
	if plan.Class == replay.ClassNone {
		return
	}

	plan.AutoUnregister = autoUnregister
	plan.AutoDisconnect = autoDisconnect
	plan.Unregister = func() {
		remove()
		h.clearStartStopLocked()
	}

	h.startStopPlan = plan
	h.startStopKind = kind
	h.startStopKey = key
}

func (h *Hub) releaseStartStopLocked(kind regKind, key string) {
	if h.startStopKind == kind && h.startStopKey == key {
		h.clearStartStopLocked()
	}
}

func (h *Hub) clearStartStopLocked() {
	if h.startStopPlan == nil {
		return
	}
	h.planner.Release(h.startStopPlan)
	h.startStopPlan = nil
	h.startStopKind = regNone
	h.startStopKey = ""
}

func (h *Hub) startConnectTimerLocked(generation uint64) {
	if h.config.ConnectTimeout <= 0 {
		return
	}
	h.connectTimer = time.AfterFunc(h.config.ConnectTimeout, func() {
		h.timedOut(generation, Connecting, "timed out waiting for the first deliver response")
	})
}

func (h *Hub) resetReadTimerLocked(generation uint64) {
	if h.config.ReadTimeout <= 0 {
		return
	}
	if h.readTimer != nil {
		h.readTimer.Stop()
	}
	h.readTimer = time.AfterFunc(h.config.ReadTimeout, func() {
		h.timedOut(generation, Connected, "timed out waiting for deliver responses")
	})
}

func (h *Hub) timedOut(generation uint64, expectedState ConnectionState, msg string) {
	h.mutex.Lock()
	if generation != h.generation || h.ConnectionState() != expectedState {
		h.mutex.Unlock()
		return
	}

	logger.Warningf("%s. Disconnecting.", msg)
	notify := h.disconnectLocked(status.New(status.ClientStatus, status.Timeout.ToInt32(), msg, nil))
	h.mutex.Unlock()
	notify()
}

func (h *Hub) stopConnectTimerLocked() {
	if h.connectTimer != nil {
		h.connectTimer.Stop()
		h.connectTimer = nil
	}
}

func (h *Hub) stopTimersLocked() {
	h.stopConnectTimerLocked()
	if h.readTimer != nil {
		h.readTimer.Stop()
		h.readTimer = nil
	}
}

func (h *Hub) setConnectionState(expected, newState ConnectionState) bool {
	return atomic.CompareAndSwapInt32(&h.connState, int32(expected), int32(newState))
}

// boolOpt resolves an optional bool override against its default
func boolOpt(value *bool, def bool) bool {
	if value != nil {
		return *value
	}
	return def
}

func (h *Hub) closedError() *status.Status {
	return status.New(status.ClientStatus, status.RegistrationsClosed.ToInt32(),
		"the event hub has been closed", nil)
}

func (h *Hub) replayCompleteError() *status.Status {
	return status.New(status.ClientStatus, status.ReplayComplete.ToInt32(),
		"the requested block range has been delivered", nil)
}
