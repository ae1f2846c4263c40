// SPDX-License-Identifier: ISC

package background_test

import (
	"fmt"
	"time"

	"github.com/coreward/listenerd/background"
)

type theState struct {
	count int
}

func Example() {

	proc := &theState{
		count: 10,
	}

	// list of background processes to start
	processes := background.Processes{
		proc.run,
	}

	handle := background.Start(processes, nil)
	time.Sleep(time.Second)
	background.Stop(handle)
}

func (state *theState) run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	fmt.Printf("initialise\n")

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}

		state.count += 1
		time.Sleep(time.Millisecond)
	}

	fmt.Printf("finalise\n")
}
