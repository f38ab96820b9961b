/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package seek

import (
	"math"
	"testing"

	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositions(t *testing.T) {
	assert.NotNil(t, Oldest().GetOldest())
	assert.NotNil(t, Newest().GetNewest())

	pos := Specified(5)
	require.NotNil(t, pos.GetSpecified())
	assert.Equal(t, uint64(5), pos.GetSpecified().Number)

	require.NotNil(t, Max().GetSpecified())
	assert.Equal(t, uint64(math.MaxUint64), Max().GetSpecified().Number, "the stop position of an unbounded seek must be the largest block number")
}

func TestInfo(t *testing.T) {
	info := Info(Specified(5), Specified(10))
	assert.Equal(t, ab.SeekInfo_BLOCK_UNTIL_READY, info.Behavior, "the deliver server must block until the next block in the range is produced")
	assert.Equal(t, uint64(5), info.Start.GetSpecified().Number)
	assert.Equal(t, uint64(10), info.Stop.GetSpecified().Number)
}

func TestInfoNewest(t *testing.T) {
	info := InfoNewest()
	assert.NotNil(t, info.Start.GetNewest())
	assert.Equal(t, Max(), info.Stop)
	assert.Equal(t, ab.SeekInfo_BLOCK_UNTIL_READY, info.Behavior)
}

func TestInfoOldest(t *testing.T) {
	info := InfoOldest()
	assert.NotNil(t, info.Start.GetOldest())
	assert.Equal(t, Max(), info.Stop)
}

func TestInfoFrom(t *testing.T) {
	info := InfoFrom(42)
	require.NotNil(t, info.Start.GetSpecified())
	assert.Equal(t, uint64(42), info.Start.GetSpecified().Number)
	assert.Equal(t, Max(), info.Stop)
}
