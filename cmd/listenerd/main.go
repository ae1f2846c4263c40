// SPDX-License-Identifier: ISC

package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/background"
	"github.com/coreward/listenerd/chain"
	"github.com/coreward/listenerd/configuration"
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/messagebus"
	"github.com/coreward/listenerd/mode"
	"github.com/coreward/listenerd/peerconn"
	"github.com/coreward/listenerd/registry"
	"github.com/coreward/listenerd/util"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "memory-stats", HasArg: getoptions.NO_ARGUMENT, Short: 'm'},
	}

	program, options, _, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		fmt.Printf("%s: version %s\n", program, version)
		return
	}
	if len(options["help"]) > 0 {
		fmt.Printf("usage: %s --config-file=<file> [--quiet] [--memory-stats]\n", program)
		return
	}
	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: exactly one --config-file option is required", program)
	}

	theConfiguration, keyPair, err := configuration.GetConfiguration(options["config-file"][0])
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration: %s", program, err)
	}

	if err := logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed: %s", program, err)
	}
	defer logger.Finalise()

	if err := fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed: %s", program, err)
	}
	defer fault.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if nil != err {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: pid file %q creation failed: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	if err := mode.Initialise(theConfiguration.Chain); nil != err {
		log.Criticalf("mode initialise error: %s", err)
		exitwithstatus.Message("mode initialise error: %s", err)
	}
	defer mode.Finalise()

	genesisHash := chain.GenesisHash(theConfiguration.Chain)
	log.Infof("chain: %s  testing: %v", theConfiguration.Chain, mode.IsTesting())

	// PeerRegistry needs a Dialer at construction, and the Dialer (a
	// peerconn.Manager) needs to carry the Registry it dials into — a
	// deferred reference breaks the cycle.
	dialer := &deferredDialer{}
	peerRegistry := registry.New(keyPair.PublicKey, dialer)
	if "" != theConfiguration.CacheFile {
		if err := peerRegistry.LoadFrom(theConfiguration.CacheFile); nil != err {
			log.Warnf("peer cache load failed: %s", err)
		}
	}

	keyBlocks := messagebus.New(0)
	txs := messagebus.New(0)

	cfg := peerconn.Config{
		Local:       keyPair,
		GenesisHash: genesisHash,
		ListenPort:  theConfiguration.Port,
		Registry:    peerRegistry,
		KeyBlocks:   keyBlocks,
		Txs:         txs,
		Log:         logger.New("peerconn"),
	}
	dialer.manager = peerconn.Manager{Config: cfg}

	listenAddress := fmt.Sprintf(":%d", theConfiguration.Port)
	tcpListener, err := net.Listen("tcp", listenAddress)
	if nil != err {
		log.Criticalf("listen error: %s", err)
		exitwithstatus.Message("listen error: %s", err)
	}
	defer tcpListener.Close()
	log.Infof("listening on %s", listenAddress)

	go consumeKeyBlocks(keyBlocks)
	go consumeTxs(txs)
	go peerstats(peerRegistry)
	if len(options["memory-stats"]) > 0 {
		go memstats()
	}

	for _, p := range theConfiguration.Connect {
		if _, err := util.CanonicalIPandPort(fmt.Sprintf("%s:%d", p.Host, p.Port)); nil != err {
			log.Errorf("skipping configured peer with invalid address %s:%d: %s", p.Host, p.Port, err)
			continue
		}
		publicKey, err := configuration.DecodePeerKey(p)
		if nil != err {
			log.Errorf("skipping configured peer %s: %s", p.Host, err)
			continue
		}
		if _, err := peerconn.DialOutbound(cfg, p.Host, p.Port, publicKey); nil != err {
			log.Errorf("dial to %s:%d failed: %s", p.Host, p.Port, err)
		}
	}

	processes := background.Processes{acceptLoop}
	handle := background.Start(processes, &runtimeArgs{listener: tcpListener, config: cfg, log: log})

	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n\nshutting down…\n", sig)
	}

	background.Stop(handle)

	if "" != theConfiguration.CacheFile {
		if err := peerRegistry.SaveTo(theConfiguration.CacheFile); nil != err {
			log.Errorf("peer cache save failed: %s", err)
		}
	}

	log.Info("shutting down…")
	mode.Set(mode.Stopped)
}
