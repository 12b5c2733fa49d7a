package ksync

import (
	"sync"
	"testing"

	"github.com/richardbraun/x1/mem"
	"github.com/richardbraun/x1/sched"
)

var startOnce sync.Once

func ensureScheduler(t *testing.T) {
	t.Helper()
	startOnce.Do(func() {
		mem.HeapBytes = 1 << 20
		mem.Setup()
		sched.Bootstrap()
		sched.Setup()
		go sched.EnableScheduler()
	})
}

// runOnThread runs fn to completion on a freshly created thread and
// blocks the calling test goroutine, via a plain channel, until it
// finishes. Every ksync primitive must be driven from a genuine
// scheduled thread, never from the test goroutine itself.
func runOnThread(t *testing.T, priority uint, fn func()) {
	t.Helper()
	done := make(chan struct{})
	_, err := sched.Create(func(arg any) {
		fn()
		close(done)
	}, nil, "harness", sched.MinStackBytes, priority)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	<-done
}

// TestMutexFairness holds the mutex on a dedicated low-priority "owner"
// sub-thread, with contenders created one priority level above it: each
// Yield between creations hands the processor straight to the
// just-created contender (it outranks owner), letting it attempt Lock
// and enqueue behind whoever came before it, in order. The harness
// thread itself runs at MaxPriority and only Joins the owner — it never
// waits on a bare channel for another thread's progress, since nothing
// about a channel receive drives the scheduler.
func TestMutexFairness(t *testing.T) {
	ensureScheduler(t)

	runOnThread(t, sched.MaxPriority, func() {
		mu := NewMutex()
		var order []string

		const contenderPriority = sched.MinPriority + 1

		owner, err := sched.Create(func(arg any) {
			mu.Lock()

			spawn := func(name string) *sched.Thread {
				th, err := sched.Create(func(arg any) {
					mu.Lock()
					order = append(order, name)
					mu.Unlock()
				}, nil, name, sched.MinStackBytes, contenderPriority)
				if err != nil {
					t.Fatalf("Create %s: %v", name, err)
				}
				sched.Yield()
				return th
			}

			a := spawn("A")
			b := spawn("B")
			c := spawn("C")

			mu.Unlock()

			sched.Join(a)
			sched.Join(b)
			sched.Join(c)
		}, nil, "owner", sched.MinStackBytes, sched.MinPriority)
		if err != nil {
			t.Fatalf("Create owner: %v", err)
		}
		sched.Join(owner)

		want := []string{"A", "B", "C"}
		if len(order) != len(want) {
			t.Fatalf("order = %v, want %v", order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	})
}

func TestTryLock(t *testing.T) {
	ensureScheduler(t)

	runOnThread(t, sched.MaxPriority, func() {
		mu := NewMutex()
		if !mu.TryLock() {
			t.Fatalf("TryLock on an unlocked mutex should succeed")
		}
		if mu.TryLock() {
			t.Fatalf("TryLock on an already-locked mutex should fail")
		}
		mu.Unlock()
		if !mu.TryLock() {
			t.Fatalf("TryLock after Unlock should succeed")
		}
		mu.Unlock()
	})
}

func TestCondVarWaitSignal(t *testing.T) {
	ensureScheduler(t)

	runOnThread(t, sched.MaxPriority, func() {
		mu := NewMutex()
		cv := NewCondVar()
		flag := false
		result := false

		waiter, err := sched.Create(func(arg any) {
			mu.Lock()
			for !flag {
				cv.Wait(mu)
			}
			result = flag
			mu.Unlock()
		}, nil, "waiter", sched.MinStackBytes, sched.MinPriority)
		if err != nil {
			t.Fatalf("Create waiter: %v", err)
		}

		mu.Lock()
		flag = true
		cv.Signal()
		mu.Unlock()

		sched.Join(waiter)
		if !result {
			t.Fatalf("waiter returned with flag still false")
		}
	})
}

// TestCondVarBroadcastWakesAll runs its harness at MinPriority and the
// waiters one level above it, so each Yield after a Create hands the
// processor to the new waiter, which blocks in Wait before the
// broadcast is issued.
func TestCondVarBroadcastWakesAll(t *testing.T) {
	ensureScheduler(t)

	runOnThread(t, sched.MinPriority, func() {
		mu := NewMutex()
		cv := NewCondVar()
		flag := false
		const waiters = 3
		threads := make([]*sched.Thread, waiters)

		for i := 0; i < waiters; i++ {
			th, err := sched.Create(func(arg any) {
				mu.Lock()
				for !flag {
					cv.Wait(mu)
				}
				mu.Unlock()
			}, nil, "waiter", sched.MinStackBytes, sched.MinPriority+1)
			if err != nil {
				t.Fatalf("Create waiter: %v", err)
			}
			threads[i] = th
			sched.Yield()
		}

		mu.Lock()
		flag = true
		cv.Broadcast()
		mu.Unlock()

		for _, th := range threads {
			sched.Join(th)
		}
	})
}
