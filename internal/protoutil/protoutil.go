/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package protoutil contains the minimal set of proto unmarshalling helpers
// needed to dig chaincode events out of a committed block.
package protoutil

import (
	"crypto/rand"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
)

// nonceLength is the length of the nonce placed in signature headers
const nonceLength = 24

// ExtractEnvelope unmarshals the envelope stored in a block data entry
func ExtractEnvelope(data []byte) (*cb.Envelope, error) {
	env := &cb.Envelope{}
	if err := proto.Unmarshal(data, env); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling Envelope")
	}
	return env, nil
}

// UnmarshalPayload unmarshals bytes to a Payload
func UnmarshalPayload(encoded []byte) (*cb.Payload, error) {
	payload := &cb.Payload{}
	if err := proto.Unmarshal(encoded, payload); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling Payload")
	}
	return payload, nil
}

// UnmarshalChannelHeader unmarshals bytes to a ChannelHeader
func UnmarshalChannelHeader(encoded []byte) (*cb.ChannelHeader, error) {
	chdr := &cb.ChannelHeader{}
	if err := proto.Unmarshal(encoded, chdr); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ChannelHeader")
	}
	return chdr, nil
}

// UnmarshalTransaction unmarshals bytes to a Transaction
func UnmarshalTransaction(encoded []byte) (*pb.Transaction, error) {
	tx := &pb.Transaction{}
	if err := proto.Unmarshal(encoded, tx); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling Transaction")
	}
	return tx, nil
}

// UnmarshalChaincodeActionPayload unmarshals bytes to a ChaincodeActionPayload
func UnmarshalChaincodeActionPayload(encoded []byte) (*pb.ChaincodeActionPayload, error) {
	capl := &pb.ChaincodeActionPayload{}
	if err := proto.Unmarshal(encoded, capl); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ChaincodeActionPayload")
	}
	return capl, nil
}

// UnmarshalProposalResponsePayload unmarshals bytes to a ProposalResponsePayload
func UnmarshalProposalResponsePayload(encoded []byte) (*pb.ProposalResponsePayload, error) {
	prp := &pb.ProposalResponsePayload{}
	if err := proto.Unmarshal(encoded, prp); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ProposalResponsePayload")
	}
	return prp, nil
}

// UnmarshalChaincodeAction unmarshals bytes to a ChaincodeAction
func UnmarshalChaincodeAction(encoded []byte) (*pb.ChaincodeAction, error) {
	action := &pb.ChaincodeAction{}
	if err := proto.Unmarshal(encoded, action); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ChaincodeAction")
	}
	return action, nil
}

// UnmarshalChaincodeEvent unmarshals bytes to a ChaincodeEvent
func UnmarshalChaincodeEvent(encoded []byte) (*pb.ChaincodeEvent, error) {
	event := &pb.ChaincodeEvent{}
	if err := proto.Unmarshal(encoded, event); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling ChaincodeEvent")
	}
	return event, nil
}

// MakeChannelHeader creates a ChannelHeader for the given header type and channel
func MakeChannelHeader(headerType cb.HeaderType, version int32, channelID string, epoch uint64) *cb.ChannelHeader {
	return &cb.ChannelHeader{
		Type:      int32(headerType),
		Version:   version,
		ChannelId: channelID,
		Epoch:     epoch,
		Timestamp: &timestamp.Timestamp{
			Seconds: time.Now().Unix(),
		},
	}
}

// MakePayloadHeader creates a Payload Header
func MakePayloadHeader(ch *cb.ChannelHeader, sh *cb.SignatureHeader) *cb.Header {
	return &cb.Header{
		ChannelHeader:   MarshalOrPanic(ch),
		SignatureHeader: MarshalOrPanic(sh),
	}
}

// MarshalOrPanic serializes a protobuf message and panics on failure.
// Only for messages built locally from known-good inputs.
func MarshalOrPanic(pb proto.Message) []byte {
	data, err := proto.Marshal(pb)
	if err != nil {
		panic(err)
	}
	return data
}

// RandomNonce returns a random nonce for use in a signature header
func RandomNonce() ([]byte, error) {
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "error getting random bytes")
	}
	return nonce, nil
}
