/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher correlates decoded blocks against the registration
// table and queues the matching listener invocations. For a given block,
// listeners are invoked in table order (block, then transaction, then
// chaincode) and in registration order within each table. A panic raised by
// one listener is recovered at the dispatch boundary so that it cannot
// prevent delivery to the remaining listeners.
//
// Matching and flag application run under the hub lock; the queued
// invocations are run by the hub through Result.Invoke after the lock has
// been released, so a listener may call back into the hub. The dispatcher
// mutates the registry only to apply a listener's auto-unregister flag.
package dispatcher

import (
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/op/go-logging"

	"github.com/securekey/fabric-channel-events/internal/protoutil"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/registry"
)

var logger = logging.MustGetLogger("eventhub")

// Result reports what the listeners of one block requested and carries the
// queued listener invocations
type Result struct {
	// Disconnect is true if a fired listener carried the disconnect flag.
	// The hub shuts down after the whole block has been dispatched.
	Disconnect bool

	invocations []func()
}

// Invoke runs the queued listener callbacks in dispatch order. The hub calls
// Invoke after releasing its lock so that a callback may call back into the
// hub without deadlocking.
func (r *Result) Invoke() {
	for _, invoke := range r.invocations {
		invoke()
	}
}

func (r *Result) queue(invoke func()) {
	r.invocations = append(r.invocations, invoke)
}

// Dispatcher fans blocks out to the listeners held by the registry
type Dispatcher struct {
	registry *registry.Registry
	// ccEventsAsArray delivers all of a block's matching chaincode events to
	// a listener in a single invocation
	ccEventsAsArray bool
}

// New returns a dispatcher operating on the given registry
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// SetCCEventsAsArray switches chaincode event delivery to one invocation per
// block per listener
func (d *Dispatcher) SetCCEventsAsArray(value bool) {
	d.ccEventsAsArray = value
}

// HandleBlock dispatches a full block to all matching listeners
func (d *Dispatcher) HandleBlock(block *cb.Block, sourceURL string) *Result {
	logger.Debugf("Dispatching block #%d", block.Header.Number)

	result := &Result{}
	d.publishBlockEvent(&api.BlockEvent{Block: block, SourceURL: sourceURL}, result)

	var txFilter protoutil.TxValidationFlags
	if block.Metadata != nil && len(block.Metadata.Metadata) > int(cb.BlockMetadataIndex_TRANSACTIONS_FILTER) {
		txFilter = protoutil.TxValidationFlags(block.Metadata.Metadata[cb.BlockMetadataIndex_TRANSACTIONS_FILTER])
	}

	batch := newCCBatch()
	for i, data := range block.Data.Data {
		d.handleBlockTx(data, txFilter.Flag(i), block.Header.Number, sourceURL, result, batch)
	}
	batch.publish(d, result)

	return result
}

// HandleFilteredBlock dispatches a filtered block to all matching listeners
func (d *Dispatcher) HandleFilteredBlock(fblock *pb.FilteredBlock, sourceURL string) *Result {
	logger.Debugf("Dispatching filtered block #%d", fblock.Number)

	result := &Result{}
	d.publishBlockEvent(&api.BlockEvent{FilteredBlock: fblock, SourceURL: sourceURL}, result)

	batch := newCCBatch()
	for _, ftx := range fblock.FilteredTransactions {
		d.publishTxStatus(ftx.Txid, ftx.TxValidationCode, fblock.Number, sourceURL, result)

		if ftx.Type != cb.HeaderType_ENDORSER_TRANSACTION {
			continue
		}
		txActions := ftx.GetTransactionActions()
		if txActions == nil {
			continue
		}
		for _, action := range txActions.ChaincodeActions {
			if action.ChaincodeEvent == nil {
				continue
			}
			// The payload of a filtered chaincode event has not been
			// validated and is never exposed
			d.matchCCEvent(&api.CCEvent{
				ChaincodeID: action.ChaincodeEvent.ChaincodeId,
				EventName:   action.ChaincodeEvent.EventName,
				TxID:        action.ChaincodeEvent.TxId,
				Payload:     nil,
				BlockNumber: fblock.Number,
				SourceURL:   sourceURL,
			}, result, batch)
		}
	}
	batch.publish(d, result)

	return result
}

func (d *Dispatcher) handleBlockTx(data []byte, code pb.TxValidationCode, blockNum uint64, sourceURL string, result *Result, batch *ccBatch) {
	env, err := protoutil.ExtractEnvelope(data)
	if err != nil {
		logger.Warningf("Error extracting envelope from block #%d. Skipping transaction: %s", blockNum, err)
		return
	}
	payload, err := protoutil.UnmarshalPayload(env.Payload)
	if err != nil {
		logger.Warningf("Error extracting payload from block #%d. Skipping transaction: %s", blockNum, err)
		return
	}
	chdr, err := protoutil.UnmarshalChannelHeader(payload.Header.ChannelHeader)
	if err != nil {
		logger.Warningf("Error extracting channel header from block #%d. Skipping transaction: %s", blockNum, err)
		return
	}

	d.publishTxStatus(chdr.TxId, code, blockNum, sourceURL, result)

	if cb.HeaderType(chdr.Type) != cb.HeaderType_ENDORSER_TRANSACTION {
		return
	}

	ccEvent, err := extractCCEvent(payload.Data)
	if err != nil {
		logger.Warningf("Error extracting chaincode event from block #%d: %s", blockNum, err)
		return
	}
	if ccEvent == nil || ccEvent.ChaincodeId == "" {
		return
	}

	d.matchCCEvent(&api.CCEvent{
		ChaincodeID: ccEvent.ChaincodeId,
		EventName:   ccEvent.EventName,
		TxID:        ccEvent.TxId,
		Payload:     ccEvent.Payload,
		BlockNumber: blockNum,
		SourceURL:   sourceURL,
	}, result, batch)
}

func (d *Dispatcher) publishBlockEvent(event *api.BlockEvent, result *Result) {
	for _, reg := range d.registry.BlockRegistrations() {
		reg := reg
		result.queue(func() { invokeBlock(reg, event) })
		d.applyFlags(reg.Unregister, reg.Disconnect, result, func() {
			if err := d.registry.UnregisterBlock(reg.ID, false); err != nil {
				logger.Warningf("Error unregistering block listener: %s", err)
			}
		})
	}
}

func (d *Dispatcher) publishTxStatus(txID string, code pb.TxValidationCode, blockNum uint64, sourceURL string, result *Result) {
	event := &api.TxStatusEvent{
		TxID:             txID,
		TxValidationCode: code,
		Status:           code.String(),
		BlockNumber:      blockNum,
		SourceURL:        sourceURL,
	}

	if reg, ok := d.registry.TxRegistration(txID); ok && reg.TxID != registry.AllTransactions {
		logger.Debugf("Sending TxStatus event for TxID [%s]", txID)
		result.queue(func() { invokeTx(reg, event) })
		d.applyFlags(reg.Unregister, reg.Disconnect, result, func() {
			if err := d.registry.UnregisterTx(reg.TxID, false); err != nil {
				logger.Warningf("Error unregistering transaction listener: %s", err)
			}
		})
	}

	if reg, ok := d.registry.AllTxRegistration(); ok {
		result.queue(func() { invokeTx(reg, event) })
		d.applyFlags(reg.Unregister, reg.Disconnect, result, func() {
			if err := d.registry.UnregisterTx(reg.TxID, false); err != nil {
				logger.Warningf("Error unregistering transaction listener: %s", err)
			}
		})
	}
}

func (d *Dispatcher) matchCCEvent(event *api.CCEvent, result *Result, batch *ccBatch) {
	for _, reg := range d.registry.ChaincodeRegistrations(event.ChaincodeID) {
		reg := reg
		if !reg.EventRegExp.MatchString(event.EventName) {
			logger.Debugf("CCEvent [%s] does not match filter [%s]", event.EventName, reg.EventFilter)
			continue
		}

		if d.ccEventsAsArray {
			batch.add(reg, event)
			continue
		}

		result.queue(func() { invokeCC(reg, event) })
		d.applyFlags(reg.Unregister, reg.Disconnect, result, func() {
			if err := d.registry.UnregisterChaincode(reg.ID, false); err != nil {
				logger.Warningf("Error unregistering chaincode listener: %s", err)
			}
		})
	}
}

// applyFlags applies a fired listener's unregister/disconnect flags. The
// disconnect is only recorded here; the hub acts on it after the block has
// been fully dispatched.
func (d *Dispatcher) applyFlags(unregister, disconnect bool, result *Result, remove func()) {
	if unregister {
		remove()
	}
	if disconnect {
		result.Disconnect = true
	}
}

// ccBatch accumulates matched chaincode events per listener when the hub is
// connected with events-as-array
type ccBatch struct {
	order  []*registry.CCReg
	events map[*registry.CCReg][]*api.CCEvent
}

func newCCBatch() *ccBatch {
	return &ccBatch{events: make(map[*registry.CCReg][]*api.CCEvent)}
}

func (b *ccBatch) add(reg *registry.CCReg, event *api.CCEvent) {
	if _, ok := b.events[reg]; !ok {
		b.order = append(b.order, reg)
	}
	b.events[reg] = append(b.events[reg], event)
}

func (b *ccBatch) publish(d *Dispatcher, result *Result) {
	for _, reg := range b.order {
		reg := reg
		events := b.events[reg]
		result.queue(func() { invokeCC(reg, events...) })
		d.applyFlags(reg.Unregister, reg.Disconnect, result, func() {
			if err := d.registry.UnregisterChaincode(reg.ID, false); err != nil {
				logger.Warningf("Error unregistering chaincode listener: %s", err)
			}
		})
	}
}

func extractCCEvent(txData []byte) (*pb.ChaincodeEvent, error) {
	tx, err := protoutil.UnmarshalTransaction(txData)
	if err != nil {
		return nil, err
	}
	if len(tx.Actions) == 0 {
		return nil, nil
	}
	ccActionPayload, err := protoutil.UnmarshalChaincodeActionPayload(tx.Actions[0].Payload)
	if err != nil {
		return nil, err
	}
	if ccActionPayload.Action == nil {
		return nil, nil
	}
	propRespPayload, err := protoutil.UnmarshalProposalResponsePayload(ccActionPayload.Action.ProposalResponsePayload)
	if err != nil {
		return nil, err
	}
	ccAction, err := protoutil.UnmarshalChaincodeAction(propRespPayload.Extension)
	if err != nil {
		return nil, err
	}
	if len(ccAction.Events) == 0 {
		return nil, nil
	}
	return protoutil.UnmarshalChaincodeEvent(ccAction.Events)
}

func invokeBlock(reg *registry.BlockReg, event *api.BlockEvent) {
	defer recoverFromListener()
	reg.Event(event)
}

func invokeTx(reg *registry.TxReg, event *api.TxStatusEvent) {
	defer recoverFromListener()
	reg.Event(event)
}

func invokeCC(reg *registry.CCReg, events ...*api.CCEvent) {
	defer recoverFromListener()
	reg.Event(events...)
}

func recoverFromListener() {
	if p := recover(); p != nil {
		logger.Warningf("Recovered from panic in event listener: %s", p)
	}
}
