/*
DESCRIPTION
  fingerprint_test.go tests dedup's at-most-one-build-per-fingerprint
  guarantee under genuine concurrency.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pyramid

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ausocean/voxelconvert/reader"
)

// TestDedupCollapsesConcurrentSubmissions verifies that two Submit calls
// for the identical fingerprint, issued while the first is still in
// flight, run fn exactly once and both observe its result.
func TestDedupCollapsesConcurrentSubmissions(t *testing.T) {
	var d dedup
	fp := Fingerprint{Level: 1, Block: reader.Index5D{X: 2, Y: 3}}

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		v, _, _ := d.Submit(fp, func() (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			close(started)
			<-release
			return "built", nil
		})
		results[0] = v
	}()

	<-started
	go func() {
		defer wg.Done()
		v, _, _ := d.Submit(fp, func() (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return "built-again", nil
		})
		results[1] = v
	}()

	// Give the second Submit time to join the in-flight call before the
	// first is released.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	if results[0] != "built" || results[1] != "built" {
		t.Errorf("results = %v, want both \"built\"", results)
	}
}

// TestDedupRunsAgainAfterForget verifies that a Submit for the same
// fingerprint after Forget runs fn again and returns its own result.
func TestDedupRunsAgainAfterForget(t *testing.T) {
	var d dedup
	fp := Fingerprint{Level: 0, Block: reader.Index5D{}}

	var calls int32
	run := func(v string) interface{} {
		out, _, _ := d.Submit(fp, func() (interface{}, error) {
			atomic.AddInt32(&calls, 1)
			return v, nil
		})
		return out
	}

	if got := run("a"); got != "a" {
		t.Fatalf("first Submit = %v, want a", got)
	}
	d.Forget(fp)
	if got := run("b"); got != "b" {
		t.Fatalf("Submit after Forget = %v, want b", got)
	}
	if calls != 2 {
		t.Errorf("fn ran %d times, want 2", calls)
	}
}

// TestFingerprintKeyDistinguishesLevelAndBlock ensures Key doesn't
// collide across different levels or blocks.
func TestFingerprintKeyDistinguishesLevelAndBlock(t *testing.T) {
	a := Fingerprint{Level: 1, Block: reader.Index5D{X: 1}}
	b := Fingerprint{Level: 2, Block: reader.Index5D{X: 1}}
	c := Fingerprint{Level: 1, Block: reader.Index5D{X: 2}}
	if a.Key() == b.Key() {
		t.Errorf("Key collides across levels: %q", a.Key())
	}
	if a.Key() == c.Key() {
		t.Errorf("Key collides across blocks: %q", a.Key())
	}
}
