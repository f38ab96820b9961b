/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protoutil

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// TxValidationFlags is the array of per-transaction validation codes stored
// in the block metadata at index TRANSACTIONS_FILTER.
type TxValidationFlags []uint8

// Flag returns the validation code of the transaction at txIndex.
// Indexes past the end of the array report NOT_VALIDATED rather than panic,
// since the metadata of a malformed block may be shorter than its data.
func (f TxValidationFlags) Flag(txIndex int) pb.TxValidationCode {
	if txIndex < 0 || txIndex >= len(f) {
		return pb.TxValidationCode_NOT_VALIDATED
	}
	return pb.TxValidationCode(f[txIndex])
}

// IsValid checks if the transaction at txIndex is valid
func (f TxValidationFlags) IsValid(txIndex int) bool {
	return f.Flag(txIndex) == pb.TxValidationCode_VALID
}
