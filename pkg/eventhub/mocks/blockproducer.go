/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// BlockProducer produces blocks with sequential block numbers
type BlockProducer struct {
	blockNum uint64
}

// NewBlockProducer returns a block producer starting at the given block
// number
func NewBlockProducer(startingBlockNum uint64) *BlockProducer {
	return &BlockProducer{blockNum: startingBlockNum}
}

// NewBlock returns a new block with the next block number
func (p *BlockProducer) NewBlock(channelID string, transactions ...*TxInfo) *cb.Block {
	block := NewBlock(channelID, transactions...)
	block.Header.Number = p.blockNum
	p.blockNum++
	return block
}

// NewFilteredBlock returns a new filtered block with the next block number
func (p *BlockProducer) NewFilteredBlock(channelID string, filteredTx ...*pb.FilteredTransaction) *pb.FilteredBlock {
	block := NewFilteredBlock(channelID, filteredTx...)
	block.Number = p.blockNum
	p.blockNum++
	return block
}
