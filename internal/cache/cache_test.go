package cache

import (
	"sync"
	"testing"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

func TestSetIfAbsentFirstWriterWins(t *testing.T) {
	m := NewMap[string, int](nil)

	winner, ok := m.SetIfAbsent("k", 1)
	if !ok || winner != 1 {
		t.Fatalf("first writer: got (%d, %v), want (1, true)", winner, ok)
	}

	winner, ok = m.SetIfAbsent("k", 2)
	if ok || winner != 1 {
		t.Fatalf("second writer: got (%d, %v), want (1, false) — first value must survive", winner, ok)
	}
}

func TestSetIfAbsentInvokesCollisionCallbackOnDifferingValue(t *testing.T) {
	var collided bool
	m := NewMap[string, int](func(key string, existing, proposed int) {
		collided = true
		if existing != 1 || proposed != 2 {
			t.Errorf("collision callback args = (%d, %d), want (1, 2)", existing, proposed)
		}
	})
	m.SetIfAbsent("k", 1)
	m.SetIfAbsent("k", 2)
	if !collided {
		t.Fatal("expected collision callback to fire for a differing second write")
	}
}

func TestSetIfAbsentNoCollisionOnIdenticalValue(t *testing.T) {
	var collided bool
	m := NewMap[string, int](func(key string, existing, proposed int) {
		collided = true
	})
	m.SetIfAbsent("k", 1)
	m.SetIfAbsent("k", 1)
	if collided {
		t.Fatal("identical repeated writes must not be reported as collisions")
	}
}

func TestSetIfAbsentConcurrent(t *testing.T) {
	m := NewMap[string, int](nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			m.SetIfAbsent("shared-key", v)
		}(i)
	}
	wg.Wait()
	if m.Len() != 1 {
		t.Fatalf("expected exactly one surviving key, got %d", m.Len())
	}
}

func TestSetMarkSeen(t *testing.T) {
	s := NewSet[RepoHashKey]()
	key := RepoHashKey{Repo: "main", Hash: objhash.Hash{1}}

	if s.MarkSeen(key) {
		t.Fatal("first MarkSeen should report not-already-seen")
	}
	if !s.MarkSeen(key) {
		t.Fatal("second MarkSeen should report already-seen")
	}
}

func TestCachesRepoHashKeyScoping(t *testing.T) {
	m := NewMap[RepoHashKey, objhash.Hash](nil)
	h := objhash.HashOf(objhash.TypeTree, []byte("x"))
	translatedA, _ := m.SetIfAbsent(RepoHashKey{Repo: "main", Hash: h}, objhash.HashOf(objhash.TypeTree, []byte("a")))
	translatedB, _ := m.SetIfAbsent(RepoHashKey{Repo: "spoken", Hash: h}, objhash.HashOf(objhash.TypeTree, []byte("b")))
	if translatedA == translatedB {
		t.Fatal("the same source hash in two different repos must not collide")
	}
}
