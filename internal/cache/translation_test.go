package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingTranslator struct {
	calls  int
	result []string
	err    error
}

func (c *countingTranslator) Translate(_ context.Context, texts []string, _, _ string, _ []string) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.result != nil {
		return c.result, nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "EN " + t
	}
	return out, nil
}

func TestTranslatorServesRepeatFromCache(t *testing.T) {
	store := newMemoryStore()
	next := &countingTranslator{}
	tr := NewTranslator(next, store, time.Hour, nil)
	ctx := context.Background()

	first, err := tr.Translate(ctx, []string{"a", "b"}, "de", "en", []string{"ctx"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	second, err := tr.Translate(ctx, []string{"a", "b"}, "de", "en", []string{"ctx"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if second[0] != first[0] || second[1] != "EN b" {
		t.Fatalf("cached result mismatch %q vs %q", first, second)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("ttl = %s", ttl)
		}
	}

	if _, err := tr.Translate(ctx, []string{"a", "b"}, "de", "en", nil); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Fatalf("different context must miss the cache, calls=%d", next.calls)
	}
}

func TestTranslatorSkipsIncompleteResults(t *testing.T) {
	store := newMemoryStore()
	next := &countingTranslator{result: []string{"", ""}}
	tr := NewTranslator(next, store, 0, nil)

	for i := 0; i < 2; i++ {
		if _, err := tr.Translate(context.Background(), []string{"a", "b"}, "de", "en", nil); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 2 || len(store.data) != 0 {
		t.Fatalf("fallback results must not be cached: calls=%d stored=%d", next.calls, len(store.data))
	}
}

func TestTranslatorPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTranslator(&countingTranslator{err: boom}, newMemoryStore(), 0, nil)
	if _, err := tr.Translate(context.Background(), []string{"a"}, "de", "en", nil); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestTranslatorIgnoresStoreFailures(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	next := &countingTranslator{}
	out, err := NewTranslator(next, store, 0, nil).Translate(context.Background(), []string{"a"}, "de", "en", nil)
	if err != nil || out[0] != "EN a" || next.calls != 1 {
		t.Fatalf("Translate = %q, %v (calls=%d)", out, err, next.calls)
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key([]string{"x"}, "de", "en", nil)
	b := Key([]string{"x"}, "de", "en", nil)
	c := Key([]string{"x"}, "de", "fr", nil)
	if a != b || a == c || len(a) != len(keyPrefix)+64 {
		t.Fatalf("unexpected keys %q %q %q", a, b, c)
	}
}

func TestNewRedisStoreFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected ping failure")
	}
}
