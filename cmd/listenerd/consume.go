// SPDX-License-Identifier: ISC

package main

import (
	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/blockcodec"
	"github.com/coreward/listenerd/identifier"
	"github.com/coreward/listenerd/messagebus"
	"github.com/coreward/listenerd/wire"
)

// consumeKeyBlocks drains the key-block bus for as long as the process
// runs; it is the terminal consumer this listener ships with, logging
// each block's identifiers rather than forwarding them anywhere else.
func consumeKeyBlocks(bus *messagebus.Bus) {
	log := logger.New("key_block")
	for msg := range bus.Chan() {
		kb, ok := msg.Item.(*blockcodec.KeyBlock)
		if !ok {
			continue
		}
		hash := kb.Hash()
		log.Infof("key block %s height-tag %d", identifier.Encode(identifier.TagKeyBlock, hash[:]), kb.Header.Height)
	}
}

// consumeTxs drains the transaction bus, logging a count per batch.
func consumeTxs(bus *messagebus.Bus) {
	log := logger.New("txs")
	for msg := range bus.Chan() {
		txs, ok := msg.Item.([]wire.SignedTx)
		if !ok {
			continue
		}
		log.Infof("received %d transactions", len(txs))
	}
}
