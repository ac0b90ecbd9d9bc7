package cache

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("null cache Get() hit = true, want miss")
	}
	if data != nil {
		t.Error("null cache Get() returned data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("null cache kept data after Set()")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		if got := Hash([]byte(tt.in)); got != tt.want {
			t.Errorf("Hash(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	base := ResultKeyOpts{Engine: "flow-1", Intent: "export", PageSize: "A4", StylePreset: "fresh"}
	rk1 := k.ResultKey("hash123", base)
	if !strings.HasPrefix(rk1, "result:") || len(rk1) != len("result:")+64 {
		t.Errorf("ResultKey unexpected: %s", rk1)
	}
	if again := k.ResultKey("hash123", base); again != rk1 {
		t.Error("ResultKey should be deterministic")
	}

	variant := base
	variant.VariantIndex = 1
	if k.ResultKey("hash123", variant) == rk1 {
		t.Error("Different variants should produce different keys")
	}
	letter := base
	letter.PageSize = "LETTER"
	if k.ResultKey("hash123", letter) == rk1 {
		t.Error("Different page sizes should produce different keys")
	}
	if k.ResultKey("hash456", base) == rk1 {
		t.Error("Different payloads should produce different keys")
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestPrefixedKeyer(t *testing.T) {
	plain := NewDefaultKeyer()
	scoped := NewPrefixedKeyer("staging:")

	rk := scoped.ResultKey("h", ResultKeyOpts{})
	if rk != "staging:"+plain.ResultKey("h", ResultKeyOpts{}) {
		t.Errorf("ResultKey() = %s, want staging: prefix on the plain key", rk)
	}
	ak := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "pdf"})
	if !strings.HasPrefix(ak, "staging:artifact:") {
		t.Errorf("ArtifactKey() = %s, want staging:artifact: prefix", ak)
	}
}

func TestPatternsMatchKeys(t *testing.T) {
	k := NewPrefixedKeyer("rf:")
	keys := []string{
		k.ResultKey("h", ResultKeyOpts{PageSize: "A4"}),
		k.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"}),
	}
	patterns := Patterns("rf:")
	for _, key := range keys {
		matched := false
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, key); ok {
				matched = true
			}
		}
		if !matched {
			t.Errorf("key %s matches none of %v", key, patterns)
		}
	}
	if ok, _ := filepath.Match(patterns[0], "other:result:abc"); ok {
		t.Error("pattern matches a key from another prefix")
	}
}

func TestKeyerSeparatesHashFromOptions(t *testing.T) {
	k := NewDefaultKeyer()
	a := k.ArtifactKey("ab", ArtifactKeyOpts{Format: "c"})
	b := k.ArtifactKey("a", ArtifactKeyOpts{Format: "bc"})
	if a == b {
		t.Error("keys for different hash/option splits collide")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "k1", []byte("v1"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := c.Set(ctx, "k2", []byte("v2"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k1")
	if err != nil || !hit || string(data) != "v1" {
		t.Errorf("Get(k1) = %q, %v, %v", data, hit, err)
	}

	// Expired entries are misses.
	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "old"); hit {
		t.Error("expired entry should be a miss")
	}

	if err := c.Delete(ctx, "k2"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := c.Delete(ctx, "k2"); err != nil {
		t.Errorf("Delete of missing key should not fail: %v", err)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear removed %d entries, want 1", n)
	}
	if _, hit, _ := c.Get(ctx, "k1"); hit {
		t.Error("entry survived Clear")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not-a-url://"); err == nil {
		t.Error("NewRedisCache should reject an invalid URL")
	}
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	b := backoff{attempts: 3, delay: time.Millisecond}
	permanent := stderrors.New("bad request")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success first try", 0, nil, 1, nil},
		{"permanent error stops", 3, permanent, 1, permanent},
		{"transient error retried", 1, ErrUnavailable, 2, nil},
		{"attempts exhausted", 5, ErrUnavailable, 3, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := b.do(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if !stderrors.Is(err, tt.wantErr) {
				t.Errorf("do() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("do() calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := backoff{attempts: 3, delay: time.Hour}
	err := b.do(ctx, func() error { return ErrUnavailable })
	if err != context.Canceled {
		t.Errorf("do() error = %v, want context.Canceled", err)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrUnavailable, true},
		{&net.OpError{Op: "dial", Err: stderrors.New("refused")}, true},
		{context.Canceled, false},
		{stderrors.New("WRONGTYPE"), false},
	}
	for _, tt := range tests {
		if got := transient(tt.err); got != tt.want {
			t.Errorf("transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
