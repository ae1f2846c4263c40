// SPDX-License-Identifier: ISC

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/registry"
	"github.com/coreward/listenerd/util"
)

const statsDelay = 60 * time.Second
const mega = 1048576

func memstats() {
	log := logger.New("memory")

	for {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		text, err := json.Marshal(m)
		if nil != err {
			log.Errorf("marshal error: %s", err)
		} else {
			log.Infof("stats: %s", text)
		}
		a := m.Alloc / mega
		t := m.TotalAlloc / mega
		s := m.Sys / mega
		util.LogWarn(log, util.CoYellow, fmt.Sprintf("allocated: %d M  cumulative: %d M  OS virtual: %d M", a, t, s))

		time.Sleep(statsDelay)
	}
}

func peerstats(reg *registry.PeerRegistry) {
	log := logger.New("registry")

	for {
		time.Sleep(statsDelay)
		live, added, dropped := reg.Stats()
		log.Infof("peers: live=%d added=%d dropped=%d", live, added, dropped)
	}
}
