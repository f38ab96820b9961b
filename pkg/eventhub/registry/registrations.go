/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"regexp"

	"github.com/securekey/fabric-channel-events/pkg/eventhub/api"
)

// BlockReg contains the data for a block registration
type BlockReg struct {
	ID    string
	Event api.BlockCallback
	Error api.ErrorCallback
	// Unregister removes the listener after it fires
	Unregister bool
	// Disconnect shuts the hub down after the block that fired the listener
	// has been fully dispatched
	Disconnect bool
}

// TxReg contains the data for a transaction registration
type TxReg struct {
	TxID       string
	Event      api.TxCallback
	Error      api.ErrorCallback
	Unregister bool
	Disconnect bool
}

// CCReg contains the data for a chaincode registration
type CCReg struct {
	ID          string
	ChaincodeID string
	EventFilter string
	EventRegExp *regexp.Regexp
	Event       api.CCCallback
	Error       api.ErrorCallback
	Unregister  bool
	Disconnect  bool
}
