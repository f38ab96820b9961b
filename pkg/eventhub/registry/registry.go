/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry stores the hub's active event listeners and enforces the
// registration preconditions. The registry is owned exclusively by the hub
// and is not safe for concurrent use; the hub serializes all access.
package registry

import (
	"regexp"
	"strings"

	"github.com/op/go-logging"
	"github.com/rs/xid"

	"github.com/securekey/fabric-channel-events/pkg/common/errors/status"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
)

var logger = logging.MustGetLogger("eventhub")

// AllTransactions is the sentinel transaction id that receives the status of
// every transaction. It may coexist with specific-id registrations.
const AllTransactions = "all"

// Registry holds the active block, transaction and chaincode listeners
type Registry struct {
	blockRegs []*BlockReg
	txRegs    map[string]*TxReg
	ccRegs    map[string][]*CCReg
}

// New returns an empty registry
func New() *Registry {
	return &Registry{
		txRegs: make(map[string]*TxReg),
		ccRegs: make(map[string][]*CCReg),
	}
}

// RegisterBlock adds a block listener and returns its handle
func (r *Registry) RegisterBlock(reg *BlockReg) (string, error) {
	if reg.Event == nil {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"block event callback is required", nil)
	}

	reg.ID = xid.New().String()
	r.blockRegs = append(r.blockRegs, reg)
	return reg.ID, nil
}

// RegisterTx adds a transaction listener keyed by the lower-cased
// transaction id and returns the stored id
func (r *Registry) RegisterTx(reg *TxReg) (string, error) {
	if reg.TxID == "" {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"transaction id is required", nil)
	}
	if reg.Event == nil {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"transaction event callback is required", nil)
	}

	reg.TxID = strings.ToLower(reg.TxID)
	if _, exists := r.txRegs[reg.TxID]; exists {
		return "", status.New(status.ClientStatus, status.AlreadyRegistered.ToInt32(),
			"a listener is already registered for transaction id "+reg.TxID, nil)
	}

	r.txRegs[reg.TxID] = reg
	return reg.TxID, nil
}

// RegisterChaincode compiles the event-name filter, adds a chaincode
// listener and returns its handle. Listeners for the same chaincode id
// accumulate in registration order.
func (r *Registry) RegisterChaincode(reg *CCReg) (string, error) {
	if reg.ChaincodeID == "" {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"chaincode id is required", nil)
	}
	if reg.EventFilter == "" {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"event filter is required", nil)
	}
	if reg.Event == nil {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"chaincode event callback is required", nil)
	}

	regExp, err := regexp.Compile(reg.EventFilter)
	if err != nil {
		return "", status.New(status.ClientStatus, status.InvalidArgument.ToInt32(),
			"error compiling regular expression for event filter "+reg.EventFilter+": "+err.Error(), nil)
	}
	reg.EventRegExp = regExp

	reg.ID = xid.New().String()
	r.ccRegs[reg.ChaincodeID] = append(r.ccRegs[reg.ChaincodeID], reg)
	return reg.ID, nil
}

// UnregisterBlock removes the block listener with the given handle
func (r *Registry) UnregisterBlock(id string, failIfMissing bool) error {
	for i, reg := range r.blockRegs {
		if reg.ID == id {
			r.blockRegs = append(r.blockRegs[:i], r.blockRegs[i+1:]...)
			return nil
		}
	}
	return r.missing("block registration "+id, failIfMissing)
}

// UnregisterTx removes the transaction listener with the given id
func (r *Registry) UnregisterTx(txID string, failIfMissing bool) error {
	txID = strings.ToLower(txID)
	if _, ok := r.txRegs[txID]; !ok {
		return r.missing("transaction registration "+txID, failIfMissing)
	}
	delete(r.txRegs, txID)
	return nil
}

// UnregisterChaincode removes the chaincode listener with the given handle
func (r *Registry) UnregisterChaincode(id string, failIfMissing bool) error {
	for ccID, regs := range r.ccRegs {
		for i, reg := range regs {
			if reg.ID == id {
				regs = append(regs[:i], regs[i+1:]...)
				if len(regs) == 0 {
					delete(r.ccRegs, ccID)
				} else {
					r.ccRegs[ccID] = regs
				}
				return nil
			}
		}
	}
	return r.missing("chaincode registration "+id, failIfMissing)
}

func (r *Registry) missing(what string, failIfMissing bool) error {
	if failIfMissing {
		return status.New(status.ClientStatus, status.NotFound.ToInt32(),
			what+" does not exist", nil)
	}
	logger.Debugf("Ignoring unregister of unknown %s", what)
	return nil
}

// BlockRegistrations returns a copy of the block listeners in registration
// order. A copy is returned so that a listener may unregister itself while
// the dispatcher is iterating.
func (r *Registry) BlockRegistrations() []*BlockReg {
	regs := make([]*BlockReg, len(r.blockRegs))
	copy(regs, r.blockRegs)
	return regs
}

// TxRegistration returns the listener for the given transaction id
func (r *Registry) TxRegistration(txID string) (*TxReg, bool) {
	reg, ok := r.txRegs[strings.ToLower(txID)]
	return reg, ok
}

// AllTxRegistration returns the listener registered under the "all" sentinel
func (r *Registry) AllTxRegistration() (*TxReg, bool) {
	reg, ok := r.txRegs[AllTransactions]
	return reg, ok
}

// ChaincodeRegistrations returns a copy of the listeners for the given
// chaincode id in registration order
func (r *Registry) ChaincodeRegistrations(ccID string) []*CCReg {
	regs := make([]*CCReg, len(r.ccRegs[ccID]))
	copy(regs, r.ccRegs[ccID])
	return regs
}

// HasAny returns true if any listener is registered
func (r *Registry) HasAny() bool {
	return len(r.blockRegs) > 0 || len(r.txRegs) > 0 || len(r.ccRegs) > 0
}

// CloseAll invokes the error callback of every listener with the given error
// and clears all tables. A panic raised by one listener is recovered so that
// it cannot prevent delivery to the others.
func (r *Registry) CloseAll(err error) {
	for _, callback := range r.Drain() {
		InvokeError(callback, err)
	}
}

// Drain clears all tables and returns the error callbacks of the removed
// listeners so that the caller can invoke them after releasing its lock
func (r *Registry) Drain() []api.ErrorCallback {
	var callbacks []api.ErrorCallback
	add := func(callback api.ErrorCallback) {
		if callback != nil {
			callbacks = append(callbacks, callback)
		}
	}

	for _, reg := range r.blockRegs {
		add(reg.Error)
	}
	for _, reg := range r.txRegs {
		add(reg.Error)
	}
	for _, regs := range r.ccRegs {
		for _, reg := range regs {
			add(reg.Error)
		}
	}

	r.blockRegs = nil
	r.txRegs = make(map[string]*TxReg)
	r.ccRegs = make(map[string][]*CCReg)
	return callbacks
}

// InvokeError invokes the given error callback, recovering from a panic
// raised by the listener
func InvokeError(callback api.ErrorCallback, err error) {
	if callback == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warningf("Recovered from panic in error callback: %s", p)
		}
	}()
	callback(err)
}
