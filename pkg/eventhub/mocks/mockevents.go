/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/securekey/fabric-channel-events/internal/protoutil"
)

// TxInfo contains the data necessary to construct a mock transaction
type TxInfo struct {
	TxID             string
	TxValidationCode pb.TxValidationCode
	HeaderType       cb.HeaderType
	ChaincodeID      string
	EventName        string
	Payload          []byte
}

// NewTransaction creates a new transaction
func NewTransaction(txID string, txValidationCode pb.TxValidationCode, headerType cb.HeaderType) *TxInfo {
	return &TxInfo{
		TxID:             txID,
		TxValidationCode: txValidationCode,
		HeaderType:       headerType,
	}
}

// NewTransactionWithCCEvent creates a new endorser transaction carrying the
// given chaincode event
func NewTransactionWithCCEvent(txID string, txValidationCode pb.TxValidationCode, ccID string, eventName string, payload []byte) *TxInfo {
	return &TxInfo{
		TxID:             txID,
		TxValidationCode: txValidationCode,
		ChaincodeID:      ccID,
		EventName:        eventName,
		Payload:          payload,
		HeaderType:       cb.HeaderType_ENDORSER_TRANSACTION,
	}
}

// NewBlock returns a new mock block initialized with the given channel and
// transactions
func NewBlock(channelID string, transactions ...*TxInfo) *cb.Block {
	var data [][]byte
	txValidationFlags := make([]uint8, len(transactions))
	for i, txInfo := range transactions {
		data = append(data, protoutil.MarshalOrPanic(newEnvelope(channelID, txInfo)))
		txValidationFlags[i] = uint8(txInfo.TxValidationCode)
	}

	blockMetaData := make([][]byte, 4)
	blockMetaData[cb.BlockMetadataIndex_TRANSACTIONS_FILTER] = txValidationFlags

	return &cb.Block{
		Header:   &cb.BlockHeader{},
		Metadata: &cb.BlockMetadata{Metadata: blockMetaData},
		Data:     &cb.BlockData{Data: data},
	}
}

// NewFilteredBlock returns a new mock filtered block initialized with the
// given channel and filtered transactions
func NewFilteredBlock(channelID string, filteredTx ...*pb.FilteredTransaction) *pb.FilteredBlock {
	return &pb.FilteredBlock{
		ChannelId:            channelID,
		FilteredTransactions: filteredTx,
	}
}

// NewFilteredTx returns a new mock filtered transaction
func NewFilteredTx(txID string, txValidationCode pb.TxValidationCode) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{
		Txid:             txID,
		TxValidationCode: txValidationCode,
		Type:             cb.HeaderType_ENDORSER_TRANSACTION,
	}
}

// NewFilteredTxWithCCEvent returns a new mock filtered transaction with the
// given chaincode event
func NewFilteredTxWithCCEvent(txID, ccID, event string) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{
		Txid: txID,
		Type: cb.HeaderType_ENDORSER_TRANSACTION,
		Data: &pb.FilteredTransaction_TransactionActions{
			TransactionActions: &pb.FilteredTransactionActions{
				ChaincodeActions: []*pb.FilteredChaincodeAction{
					{
						ChaincodeEvent: &pb.ChaincodeEvent{
							ChaincodeId: ccID,
							EventName:   event,
							TxId:        txID,
						},
					},
				},
			},
		},
	}
}

// NewBlockResponse wraps the given block in a deliver response
func NewBlockResponse(block *cb.Block) *pb.DeliverResponse {
	return &pb.DeliverResponse{
		Type: &pb.DeliverResponse_Block{Block: block},
	}
}

// NewFilteredBlockResponse wraps the given filtered block in a deliver
// response
func NewFilteredBlockResponse(fblock *pb.FilteredBlock) *pb.DeliverResponse {
	return &pb.DeliverResponse{
		Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: fblock},
	}
}

// NewStatusResponse wraps the given status in a deliver response
func NewStatusResponse(status cb.Status) *pb.DeliverResponse {
	return &pb.DeliverResponse{
		Type: &pb.DeliverResponse_Status{Status: status},
	}
}

func newEnvelope(channelID string, txInfo *TxInfo) *cb.Envelope {
	tx := &pb.Transaction{
		Actions: []*pb.TransactionAction{newTxAction(txInfo.TxID, txInfo.ChaincodeID, txInfo.EventName, txInfo.Payload)},
	}

	channelHeader := &cb.ChannelHeader{
		ChannelId: channelID,
		TxId:      txInfo.TxID,
		Type:      int32(txInfo.HeaderType),
	}

	payload := &cb.Payload{
		Header: &cb.Header{
			ChannelHeader: protoutil.MarshalOrPanic(channelHeader),
		},
		Data: protoutil.MarshalOrPanic(tx),
	}

	return &cb.Envelope{
		Payload: protoutil.MarshalOrPanic(payload),
	}
}

func newTxAction(txID string, ccID string, eventName string, payload []byte) *pb.TransactionAction {
	ccEvent := &pb.ChaincodeEvent{
		TxId:        txID,
		ChaincodeId: ccID,
		EventName:   eventName,
		Payload:     payload,
	}

	chaincodeAction := &pb.ChaincodeAction{
		ChaincodeId: &pb.ChaincodeID{
			Name: ccID,
		},
		Events: protoutil.MarshalOrPanic(ccEvent),
	}

	prp := &pb.ProposalResponsePayload{
		Extension: protoutil.MarshalOrPanic(chaincodeAction),
	}

	ccActionPayload := &pb.ChaincodeActionPayload{
		Action: &pb.ChaincodeEndorsedAction{
			ProposalResponsePayload: protoutil.MarshalOrPanic(prp),
		},
	}

	return &pb.TransactionAction{
		Payload: protoutil.MarshalOrPanic(ccActionPayload),
	}
}
