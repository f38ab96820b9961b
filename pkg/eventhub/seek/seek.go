/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package seek builds the SeekInfo payloads sent to the deliver server.
package seek

import (
	"math"

	ab "github.com/hyperledger/fabric-protos-go/orderer"
)

var (
	oldestPos = &ab.SeekPosition{Type: &ab.SeekPosition_Oldest{Oldest: &ab.SeekOldest{}}}
	newestPos = &ab.SeekPosition{Type: &ab.SeekPosition_Newest{Newest: &ab.SeekNewest{}}}
	maxPos    = Specified(math.MaxUint64)
)

// Oldest is the position of the first block on the channel
func Oldest() *ab.SeekPosition {
	return oldestPos
}

// Newest is the position of the last block on the channel
func Newest() *ab.SeekPosition {
	return newestPos
}

// Max is the position of the largest possible block number. Used as the stop
// position of an unbounded seek.
func Max() *ab.SeekPosition {
	return maxPos
}

// Specified is the position of the given block number
func Specified(number uint64) *ab.SeekPosition {
	return &ab.SeekPosition{
		Type: &ab.SeekPosition_Specified{
			Specified: &ab.SeekSpecified{
				Number: number,
			},
		},
	}
}

// InfoNewest returns a SeekInfo struct that indicates to the deliver server
// that we just want the latest blocks
func InfoNewest() *ab.SeekInfo {
	return Info(newestPos, maxPos)
}

// InfoOldest returns a SeekInfo struct that indicates to the deliver server
// that we want all blocks starting from the oldest block (block 0)
func InfoOldest() *ab.SeekInfo {
	return Info(oldestPos, maxPos)
}

// InfoFrom returns a SeekInfo struct that indicates to the deliver server
// that we want all blocks starting from the given block number
func InfoFrom(fromBlock uint64) *ab.SeekInfo {
	return Info(Specified(fromBlock), maxPos)
}

// Info returns a SeekInfo struct for the given start and stop positions.
// The deliver server blocks until the next block in the range is produced.
func Info(start *ab.SeekPosition, stop *ab.SeekPosition) *ab.SeekInfo {
	return &ab.SeekInfo{
		Start:    start,
		Stop:     stop,
		Behavior: ab.SeekInfo_BLOCK_UNTIL_READY,
	}
}
