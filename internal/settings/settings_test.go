package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type failingProvider struct{ err error }

func (f failingProvider) Lookup(context.Context, string) (string, bool, error) {
	return "", false, f.err
}

type countingProvider struct {
	mu    sync.Mutex
	calls int
	inner Provider
}

func (c *countingProvider) Lookup(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Lookup(ctx, key)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestIntAndFloat(t *testing.T) {
	ctx := context.Background()
	p := Static{
		"SLA:P1:ResponseMinutes":        " 45 ",
		"SLA:Bad":                       "ninety",
		"SLA:CM:AtRiskThresholdPercent": "72.5",
		"SLA:Empty":                     "",
	}
	cases := []struct {
		key  string
		def  int
		want int
	}{
		{"SLA:P1:ResponseMinutes", 60, 45},
		{"SLA:Bad", 60, 60},
		{"SLA:Missing", 7, 7},
		{"SLA:Empty", 3, 3},
	}
	for _, tc := range cases {
		if got := Int(ctx, p, tc.key, tc.def); got != tc.want {
			t.Errorf("Int(%s) = %d, want %d", tc.key, got, tc.want)
		}
	}
	if got := Float(ctx, p, "SLA:CM:AtRiskThresholdPercent", 80); got != 72.5 {
		t.Errorf("Float = %v, want 72.5", got)
	}
	if got := Float(ctx, failingProvider{err: errors.New("db down")}, "x", 80); got != 80 {
		t.Errorf("Float on failing provider = %v, want default", got)
	}
	if got := Int(ctx, nil, "x", 5); got != 5 {
		t.Errorf("Int on nil provider = %d", got)
	}
}

func TestChain_FirstFoundWins(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	chain := Chain{
		failingProvider{err: boom},
		Static{"a": "file"},
		Static{"a": "db", "b": "db"},
	}
	if v, found, err := chain.Lookup(ctx, "a"); err != nil || !found || v != "file" {
		t.Errorf("a = %q %v %v", v, found, err)
	}
	if v, found, err := chain.Lookup(ctx, "b"); err != nil || !found || v != "db" {
		t.Errorf("b = %q %v %v", v, found, err)
	}
	if _, found, err := chain.Lookup(ctx, "c"); found || !errors.Is(err, boom) {
		t.Errorf("c: found=%v err=%v, want source error", found, err)
	}
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingProvider{inner: Static{"SLA:Evaluation:BatchSize": "50"}}
	store := newMemStore()
	cached := NewCachedProvider(backing, store, 30*time.Second, "settings:")

	for i := 0; i < 3; i++ {
		v, found, err := cached.Lookup(ctx, "SLA:Evaluation:BatchSize")
		if err != nil || !found || v != "50" {
			t.Fatalf("lookup %d = %q %v %v", i, v, found, err)
		}
		if _, found, _ := cached.Lookup(ctx, "SLA:Unset"); found {
			t.Fatal("unset key reported found")
		}
	}
	if backing.calls != 2 {
		t.Errorf("backing calls = %d, want 2 (one per key)", backing.calls)
	}
	if store.ttls["settings:SLA:Evaluation:BatchSize"] != 30*time.Second {
		t.Errorf("ttl = %v", store.ttls["settings:SLA:Evaluation:BatchSize"])
	}
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cached := NewCachedProvider(failingProvider{err: errors.New("timeout")}, store, time.Minute, "")
	if _, _, err := cached.Lookup(ctx, "k"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.data) != 0 {
		t.Errorf("error result cached: %v", store.data)
	}
}

func TestCachedProvider_DisabledWithoutTTL(t *testing.T) {
	backing := &countingProvider{inner: Static{"k": "v"}}
	cached := NewCachedProvider(backing, newMemStore(), 0, "")
	for i := 0; i < 2; i++ {
		_, _, _ = cached.Lookup(context.Background(), "k")
	}
	if backing.calls != 2 {
		t.Errorf("calls = %d, want pass-through", backing.calls)
	}
}

func TestFileSource_NestedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sla.yaml")
	content := "SLA:\n  CM:\n    P1:\n      ResponseMinutes: 90\n    AtRiskThresholdPercent: 75\n  Evaluation:\n    BatchSize: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	ctx := context.Background()
	if got := Int(ctx, src, "SLA:CM:P1:ResponseMinutes", 60); got != 90 {
		t.Errorf("ResponseMinutes = %d, want 90", got)
	}
	if got := Float(ctx, src, "SLA:CM:AtRiskThresholdPercent", 80); got != 75 {
		t.Errorf("threshold = %v, want 75", got)
	}
	if _, found, _ := src.Lookup(ctx, "SLA:PM:P1:ResponseMinutes"); found {
		t.Error("undefined key reported found")
	}
}

func TestFileSource_EmptyPathDefinesNothing(t *testing.T) {
	src, err := NewFileSource("")
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	if _, found, _ := src.Lookup(context.Background(), "SLA:Evaluation:BatchSize"); found {
		t.Error("empty source reported a key")
	}
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
