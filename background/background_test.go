// SPDX-License-Identifier: ISC

package background_test

import (
	"testing"
	"time"

	"github.com/coreward/listenerd/background"
)

const (
	initialCount1 = 246
	finalCount1   = 987654321
	initialCount2 = 777
	finalCount2   = 897645312
)

type bg1 struct {
	count int
}

func TestBackground(t *testing.T) {

	proc1 := &bg1{count: initialCount1}
	proc2 := &bg1{count: initialCount2}

	processes := background.Processes{proc1.run, proc2.run}

	handle := background.Start(processes, t)
	time.Sleep(50 * time.Millisecond)
	background.Stop(handle)

	if finalCount1 != proc1.count {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount1, proc1.count)
	}
	if finalCount2 != proc2.count {
		t.Fatalf("stop failed: final value expected: %d  actual: %d", finalCount2, proc2.count)
	}
}

func (state *bg1) run(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer close(done)

	t := args.(*testing.T)

	n := 0
	switch state.count {
	case initialCount1:
		n = 1
	case initialCount2:
		n = 2
	default:
		t.Errorf("initialisation failed: unexpected initial count: %d", state.count)
	}

loop:
	for {
		select {
		case <-shutdown:
			break loop
		default:
		}
		state.count += 9
		time.Sleep(time.Millisecond)
	}

	switch n {
	case 1:
		state.count = finalCount1
	case 2:
		state.count = finalCount2
	default:
		t.Errorf("unexpected n: %d", n)
	}
}
