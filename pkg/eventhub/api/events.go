/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// BlockEvent is delivered to block listeners for every accepted block.
// Exactly one of Block or FilteredBlock is set, depending on whether the
// hub was connected in full-block or filtered mode.
type BlockEvent struct {
	Block         *cb.Block
	FilteredBlock *pb.FilteredBlock
	SourceURL     string
}

// Number returns the block number of the event
func (e *BlockEvent) Number() uint64 {
	if e.Block != nil {
		return e.Block.Header.Number
	}
	return e.FilteredBlock.Number
}

// TxStatusEvent is delivered to transaction listeners
type TxStatusEvent struct {
	TxID             string
	TxValidationCode pb.TxValidationCode
	// Status is the name of the validation code, e.g. "VALID"
	Status      string
	BlockNumber uint64
	SourceURL   string
}

// CCEvent is delivered to chaincode listeners. Payload is always empty for
// events extracted from a filtered block.
type CCEvent struct {
	ChaincodeID string
	EventName   string
	TxID        string
	Payload     []byte
	BlockNumber uint64
	SourceURL   string
}

// BlockCallback is invoked for every accepted block
type BlockCallback func(event *BlockEvent)

// TxCallback is invoked with the validation outcome of a transaction
type TxCallback func(event *TxStatusEvent)

// CCCallback is invoked with chaincode events matching a registration.
// Normally one event is passed per invocation; when the hub is connected
// with events-as-array, all of a block's matching events arrive in a
// single invocation.
type CCCallback func(events ...*CCEvent)

// ErrorCallback is invoked when the registration is closed, either by an
// explicit disconnect, a stream failure or replay completion
type ErrorCallback func(err error)
