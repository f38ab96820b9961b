/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securekey/fabric-channel-events/pkg/common/errors/status"
	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
)

func TestRegisterBlock(t *testing.T) {
	r := New()

	_, err := r.RegisterBlock(&BlockReg{})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for missing callback")

	id1, err := r.RegisterBlock(&BlockReg{Event: func(*api.BlockEvent) {}})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := r.RegisterBlock(&BlockReg{Event: func(*api.BlockEvent) {}})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	regs := r.BlockRegistrations()
	require.Len(t, regs, 2)
	assert.Equal(t, id1, regs[0].ID, "expecting registration order to be preserved")
	assert.True(t, r.HasAny())
}

func TestRegisterTx(t *testing.T) {
	r := New()

	_, err := r.RegisterTx(&TxReg{Event: func(*api.TxStatusEvent) {}})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for missing tx id")

	_, err = r.RegisterTx(&TxReg{TxID: "tx1"})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for missing callback")

	id, err := r.RegisterTx(&TxReg{TxID: "TX1", Event: func(*api.TxStatusEvent) {}})
	require.NoError(t, err)
	assert.Equal(t, "tx1", id, "expecting tx id to be lower-cased")

	_, ok := r.TxRegistration("Tx1")
	assert.True(t, ok, "expecting lookup to be case-insensitive")

	_, err = r.RegisterTx(&TxReg{TxID: "tx1", Event: func(*api.TxStatusEvent) {}})
	assert.True(t, status.IsCode(err, status.AlreadyRegistered))

	_, err = r.RegisterTx(&TxReg{TxID: AllTransactions, Event: func(*api.TxStatusEvent) {}})
	require.NoError(t, err, "the all sentinel should coexist with specific ids")

	_, err = r.RegisterTx(&TxReg{TxID: AllTransactions, Event: func(*api.TxStatusEvent) {}})
	assert.True(t, status.IsCode(err, status.AlreadyRegistered), "expecting AlreadyRegistered for a second all listener")

	_, ok = r.AllTxRegistration()
	assert.True(t, ok)
}

func TestRegisterChaincode(t *testing.T) {
	r := New()

	_, err := r.RegisterChaincode(&CCReg{EventFilter: ".*", Event: func(...*api.CCEvent) {}})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for missing chaincode id")

	_, err = r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", Event: func(...*api.CCEvent) {}})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for missing event filter")

	_, err = r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", EventFilter: "(invalid", Event: func(...*api.CCEvent) {}})
	assert.True(t, status.IsCode(err, status.InvalidArgument), "expecting InvalidArgument for an invalid pattern")

	id1, err := r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", EventFilter: "^evt.*", Event: func(...*api.CCEvent) {}})
	require.NoError(t, err)

	id2, err := r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", EventFilter: ".*", Event: func(...*api.CCEvent) {}})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	regs := r.ChaincodeRegistrations("cc1")
	require.Len(t, regs, 2, "expecting multiple listeners per chaincode id")
	assert.Equal(t, id1, regs[0].ID)
	assert.True(t, regs[0].EventRegExp.MatchString("evt1"))
	assert.False(t, regs[0].EventRegExp.MatchString("other"))
}

func TestUnregister(t *testing.T) {
	r := New()

	id, err := r.RegisterBlock(&BlockReg{Event: func(*api.BlockEvent) {}})
	require.NoError(t, err)

	err = r.UnregisterBlock("unknown", true)
	assert.True(t, status.IsCode(err, status.NotFound))
	assert.NoError(t, r.UnregisterBlock("unknown", false), "expecting a silent no-op when failIfMissing is not set")

	require.NoError(t, r.UnregisterBlock(id, true))
	assert.Empty(t, r.BlockRegistrations())

	txID, err := r.RegisterTx(&TxReg{TxID: "tx1", Event: func(*api.TxStatusEvent) {}})
	require.NoError(t, err)
	require.NoError(t, r.UnregisterTx(txID, true))
	assert.True(t, status.IsCode(r.UnregisterTx(txID, true), status.NotFound))

	ccID, err := r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", EventFilter: ".*", Event: func(...*api.CCEvent) {}})
	require.NoError(t, err)
	require.NoError(t, r.UnregisterChaincode(ccID, true))
	assert.Empty(t, r.ChaincodeRegistrations("cc1"))
	assert.False(t, r.HasAny())
}

func TestCloseAll(t *testing.T) {
	r := New()

	numErrors := 0
	onError := func(err error) {
		assert.EqualError(t, err, "stream failed")
		numErrors++
	}

	_, err := r.RegisterBlock(&BlockReg{Event: func(*api.BlockEvent) {}, Error: onError})
	require.NoError(t, err)
	_, err = r.RegisterBlock(&BlockReg{Event: func(*api.BlockEvent) {}, Error: func(error) { panic("listener panic") }})
	require.NoError(t, err)
	_, err = r.RegisterTx(&TxReg{TxID: "tx1", Event: func(*api.TxStatusEvent) {}, Error: onError})
	require.NoError(t, err)
	_, err = r.RegisterChaincode(&CCReg{ChaincodeID: "cc1", EventFilter: ".*", Event: func(...*api.CCEvent) {}, Error: onError})
	require.NoError(t, err)
	_, err = r.RegisterTx(&TxReg{TxID: "tx2", Event: func(*api.TxStatusEvent) {}})
	require.NoError(t, err, "a registration without an error callback should be allowed")

	r.CloseAll(errors.New("stream failed"))

	assert.Equal(t, 3, numErrors, "expecting every error callback to be invoked despite the panicking listener")
	assert.False(t, r.HasAny(), "expecting all tables to be cleared")
	assert.Empty(t, r.BlockRegistrations())
	_, ok := r.TxRegistration("tx1")
	assert.False(t, ok)
}
