package id

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
	if !IsValid(id) {
		t.Errorf("generated ULID should be valid: %s", id)
	}
}

func TestWorkspaceName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	gen := NewGeneratorWithEntropy(bytes.NewReader(bytes.Repeat([]byte{0x42}, 64)), func() time.Time { return now })

	name := gen.WorkspaceName(".temp-extract-")

	want := ".temp-extract-1700000000123-"
	if !strings.HasPrefix(name, want) {
		t.Fatalf("workspace name should start with %q, got %q", want, name)
	}
	random := strings.TrimPrefix(name, want)
	if len(random) != 16 {
		t.Errorf("random component should be 16 characters, got %q", random)
	}
	if random != strings.ToLower(random) {
		t.Errorf("random component should be lowercase, got %q", random)
	}
}

func TestTempFileName(t *testing.T) {
	gen := NewGenerator()

	name := gen.TempFileName("server.properties")

	if !strings.HasPrefix(name, ".server.properties.tmp-") {
		t.Errorf("unexpected temp file name: %s", name)
	}
}

func TestConcurrentWorkspaceNames(t *testing.T) {
	gen := NewGenerator()
	const workers = 16
	const perWorker = 100

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				name := gen.WorkspaceName(".temp-extract-")
				mu.Lock()
				if seen[name] {
					t.Errorf("duplicate workspace name: %s", name)
				}
				seen[name] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d names, got %d", workers*perWorker, len(seen))
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := Default().GenerateString()

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should be after %v", ts, before)
	}

	if _, err := Timestamp("not-a-ulid"); err == nil {
		t.Error("expected error for invalid ULID")
	}
}
