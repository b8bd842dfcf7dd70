package locks

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	const workers = 8
	const iterations = 200

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				k.Lock("supplier-a")
				counter++
				k.Unlock("supplier-a")
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("lost updates under the same key: %d != %d", counter, workers*iterations)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock("supplier-a")
	defer k.Unlock("supplier-a")

	done := make(chan struct{})
	go func() {
		k.Lock("supplier-b")
		k.Unlock("supplier-b")
		close(done)
	}()

	// Must not block behind supplier-a's lock.
	<-done
}

func TestKeyedMutexEntriesReleased(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock("supplier-a")
	k.Unlock("supplier-a")

	k.mu.Lock()
	n := len(k.locks)
	k.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected lock table drained, %d entries remain", n)
	}
}
