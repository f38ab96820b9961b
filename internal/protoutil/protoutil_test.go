/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protoutil

import (
	"testing"

	cb "github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEnvelope(t *testing.T) {
	env := &cb.Envelope{Payload: []byte("payload"), Signature: []byte("signature")}

	extracted, err := ExtractEnvelope(MarshalOrPanic(env))
	require.NoError(t, err)
	assert.Equal(t, env.Payload, extracted.Payload)
	assert.Equal(t, env.Signature, extracted.Signature)

	_, err = ExtractEnvelope([]byte("this is not an envelope"))
	assert.Error(t, err)
}

func TestUnmarshalChannelHeader(t *testing.T) {
	chdr := MakeChannelHeader(cb.HeaderType_DELIVER_SEEK_INFO, 0, "testchannel", 0)
	require.NotNil(t, chdr.Timestamp)

	unmarshalled, err := UnmarshalChannelHeader(MarshalOrPanic(chdr))
	require.NoError(t, err)
	assert.Equal(t, int32(cb.HeaderType_DELIVER_SEEK_INFO), unmarshalled.Type)
	assert.Equal(t, "testchannel", unmarshalled.ChannelId)

	_, err = UnmarshalChannelHeader([]byte("bad header"))
	assert.Error(t, err)
}

func TestTxValidationFlags(t *testing.T) {
	flags := TxValidationFlags{
		uint8(pb.TxValidationCode_VALID),
		uint8(pb.TxValidationCode_MVCC_READ_CONFLICT),
	}

	assert.Equal(t, pb.TxValidationCode_VALID, flags.Flag(0))
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, flags.Flag(1))
	assert.True(t, flags.IsValid(0))
	assert.False(t, flags.IsValid(1))

	assert.Equal(t, pb.TxValidationCode_NOT_VALIDATED, flags.Flag(2), "out-of-range entries are not validated")
	assert.False(t, flags.IsValid(2))
}

func TestRandomNonce(t *testing.T) {
	nonce1, err := RandomNonce()
	require.NoError(t, err)
	assert.Len(t, nonce1, 24)

	nonce2, err := RandomNonce()
	require.NoError(t, err)
	assert.NotEqual(t, nonce1, nonce2)
}
