package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vecdump/vecdump/pkg/storage"
	"github.com/vecdump/vecdump/pkg/store"
	"github.com/vecdump/vecdump/pkg/vector"
)

func newTestFiles(t *testing.T) (*storage.Local, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	return files, dir
}

func readBack(t *testing.T, files *storage.Local, path string) *Manifest {
	t.Helper()
	r, err := files.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	defer r.Close()
	m, err := ReadManifest(r)
	if err != nil {
		t.Fatalf("manifest invalid: %v", err)
	}
	return m
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, de := range dirEntries {
		if strings.HasSuffix(de.Name(), ".tmp") {
			t.Errorf("stray temp file %s", de.Name())
		}
	}
}

func TestExportCompleteness(t *testing.T) {
	m := store.NewMemory()
	const n = 25
	for i := 0; i < n; i++ {
		switch i % 3 {
		case 0:
			m.Set(fmt.Sprintf("key:%02d", i), "value")
		case 1:
			m.HSet(fmt.Sprintf("key:%02d", i), map[string]string{"f": "v"})
		default:
			m.RPush(fmt.Sprintf("key:%02d", i), "a", "b")
		}
	}
	files, dir := newTestFiles(t)
	e := New(m, files, Options{BatchSize: 7})

	res, err := e.Run(context.Background(), "manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if e.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", e.State())
	}
	if res.Exported != n || res.Total != n {
		t.Fatalf("result = %+v, want %d exported of %d", res, n, n)
	}

	man := readBack(t, files, "manifest.json")
	if len(man.Keys) != n {
		t.Fatalf("manifest has %d entries, want %d", len(man.Keys), n)
	}
	if man.TotalKeys != n {
		t.Fatalf("totalKeys = %d, want %d", man.TotalKeys, n)
	}
	if _, err := time.Parse(time.RFC3339, man.Timestamp); err != nil {
		t.Fatalf("timestamp %q not RFC 3339: %v", man.Timestamp, err)
	}

	// Result accounting matches the bytes on disk.
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Bytes != int64(len(raw)) {
		t.Errorf("result bytes = %d, file has %d", res.Bytes, len(raw))
	}
	sum := sha256.Sum256(raw)
	if res.Checksum.String() != hex.EncodeToString(sum[:]) {
		t.Errorf("checksum mismatch: %s", res.Checksum)
	}
	assertNoTempFiles(t, dir)
}

func TestExportEmptyKeyspace(t *testing.T) {
	m := store.NewMemory()
	files, dir := newTestFiles(t)
	e := New(m, files, Options{})

	res, err := e.Run(context.Background(), "manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if res.Exported != 0 || res.Total != 0 {
		t.Fatalf("result = %+v", res)
	}
	man := readBack(t, files, "manifest.json")
	if len(man.Keys) != 0 {
		t.Fatalf("entries = %+v, want none", man.Keys)
	}
	assertNoTempFiles(t, dir)
}

func TestExportTruncatesLongList(t *testing.T) {
	m := store.NewMemory()
	elems := make([]string, 500)
	for i := range elems {
		elems[i] = fmt.Sprintf("e%03d", i)
	}
	m.RPush("biglist", elems...)
	files, _ := newTestFiles(t)
	e := New(m, files, Options{})

	if _, err := e.Run(context.Background(), "manifest.json"); err != nil {
		t.Fatal(err)
	}
	man := readBack(t, files, "manifest.json")
	list, ok := man.Keys[0].Value.([]any)
	if !ok {
		t.Fatalf("list value = %#v", man.Keys[0].Value)
	}
	if len(list) != 101 {
		t.Fatalf("exported %d elements, want exactly 101", len(list))
	}
}

func TestExportMatchScope(t *testing.T) {
	m := store.NewMemory()
	m.Set("user:1", "a")
	m.Set("job:1", "b")
	m.Set("user:2", "c")
	files, _ := newTestFiles(t)
	e := New(m, files, Options{Match: "user:*"})

	res, err := e.Run(context.Background(), "manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if res.Exported != 2 {
		t.Fatalf("exported = %d, want 2", res.Exported)
	}
	man := readBack(t, files, "manifest.json")
	for _, entry := range man.Keys {
		if !strings.HasPrefix(entry.Key, "user:") {
			t.Errorf("unmatched key %q exported", entry.Key)
		}
	}
}

func TestExportProjectionEndToEnd(t *testing.T) {
	m := store.NewMemory()
	m.HSet("item:1", map[string]string{
		"embedding":   string(vector.Encode([]float32{0.5, -1})),
		"description": "a box",
		"blob":        "\xff\xfe",
	})
	m.Set("raw", "\xff\x00binary")
	m.ZAdd("rank", store.Z{Member: "a", Score: 1}, store.Z{Member: "b", Score: 2})
	files, _ := newTestFiles(t)
	e := New(m, files, Options{})

	if _, err := e.Run(context.Background(), "manifest.json"); err != nil {
		t.Fatal(err)
	}
	man := readBack(t, files, "manifest.json")
	byKey := make(map[string]Entry, len(man.Keys))
	for _, entry := range man.Keys {
		byKey[entry.Key] = entry
	}

	fields := byKey["item:1"].Value.(map[string]any)
	emb := fields["embedding"].(map[string]any)
	if emb["type"] != "float32_array" || emb["dimensions"] != float64(2) {
		t.Errorf("embedding wrapper = %#v", emb)
	}
	data := emb["data"].([]any)
	if len(data) != 2 || data[0] != 0.5 || data[1] != float64(-1) {
		t.Errorf("embedding data = %#v", data)
	}
	if fields["description"] != "a box" {
		t.Errorf("description = %#v", fields["description"])
	}
	blob := fields["blob"].(map[string]any)
	if blob["type"] != "binary_data" || blob["encoding"] != "base64" || blob["data"] != "//4=" {
		t.Errorf("blob wrapper = %#v", blob)
	}

	raw := byKey["raw"].Value.(map[string]any)
	if raw["type"] != "binary_data" {
		t.Errorf("binary string value = %#v", raw)
	}

	rank := byKey["rank"].Value.([]any)
	first := rank[0].(map[string]any)
	if first["member"] != "a" || first["score"] != float64(1) {
		t.Errorf("zset element = %#v", first)
	}
}

// cancelAfterScan cancels the run context once the nth Scan call returns,
// so cancellation always lands between batches.
type cancelAfterScan struct {
	store.Client
	cancel context.CancelFunc
	after  int
	calls  int
}

func (c *cancelAfterScan) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := c.Client.Scan(ctx, cursor, match, count)
	c.calls++
	if c.calls == c.after {
		c.cancel()
	}
	return keys, next, err
}

func TestExportCancellationCleanup(t *testing.T) {
	m := store.NewMemory()
	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("key:%03d", i), "v")
	}
	files, dir := newTestFiles(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := New(&cancelAfterScan{Client: m, cancel: cancel, after: 2}, files, Options{BatchSize: 10})

	_, err := e.Run(ctx, "manifest.json")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if e.State() != StateCancelled {
		t.Fatalf("state = %v, want cancelled", e.State())
	}
	if ok, _ := files.Exists(context.Background(), "manifest.json"); ok {
		t.Fatal("manifest visible after cancellation")
	}
	assertNoTempFiles(t, dir)
}

func TestExportScanFailure(t *testing.T) {
	m := store.NewMemory()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("key:%02d", i), "v")
	}
	boom := errors.New("connection reset")
	m.FailScan(2, boom)
	files, dir := newTestFiles(t)
	e := New(m, files, Options{BatchSize: 10})

	_, err := e.Run(context.Background(), "manifest.json")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if e.State() != StateFailed {
		t.Fatalf("state = %v, want failed", e.State())
	}
	if ok, _ := files.Exists(context.Background(), "manifest.json"); ok {
		t.Fatal("manifest visible after failure")
	}
	assertNoTempFiles(t, dir)
}

func TestExportPipelineFailure(t *testing.T) {
	m := store.NewMemory()
	m.Set("a", "1")
	boom := errors.New("broken pipe")
	m.FailPipeline(boom)
	files, dir := newTestFiles(t)
	e := New(m, files, Options{})

	if _, err := e.Run(context.Background(), "manifest.json"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if e.State() != StateFailed {
		t.Fatalf("state = %v, want failed", e.State())
	}
	assertNoTempFiles(t, dir)
}

func TestExportRunTwice(t *testing.T) {
	m := store.NewMemory()
	m.Set("a", "1")
	files, _ := newTestFiles(t)
	e := New(m, files, Options{})

	if _, err := e.Run(context.Background(), "one.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), "two.json"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Run = %v, want ErrBusy", err)
	}
}

func TestExportProgressStream(t *testing.T) {
	m := store.NewMemory()
	const n = 35
	for i := 0; i < n; i++ {
		m.Set(fmt.Sprintf("k%02d", i), "v")
	}
	files, _ := newTestFiles(t)
	e := New(m, files, Options{BatchSize: 10, ProgressEvery: 10})

	done := make(chan struct{})
	var snapshots []Progress
	go func() {
		defer close(done)
		for p := range e.Progress() {
			snapshots = append(snapshots, p)
		}
	}()

	if _, err := e.Run(context.Background(), "manifest.json"); err != nil {
		t.Fatal(err)
	}
	<-done

	if len(snapshots) == 0 {
		t.Fatal("no progress snapshots delivered")
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].Exported < snapshots[i-1].Exported {
			t.Fatalf("progress went backwards: %+v", snapshots)
		}
	}
	last := snapshots[len(snapshots)-1]
	if last.Exported != n || last.Total != n || last.Percent != 100 {
		t.Fatalf("final snapshot = %+v, want %d/%d (100%%)", last, n, n)
	}
}

func TestExportLargeKeyspaceAdvisory(t *testing.T) {
	m := store.NewMemory()
	for i := int64(0); i <= LargeKeyspaceThreshold; i++ {
		m.Set(fmt.Sprintf("k%06d", i), "")
	}
	files, _ := newTestFiles(t)
	// Match nothing: the advisory depends on DBSIZE, not on what is
	// exported.
	e := New(m, files, Options{Match: "absent:*", BatchSize: 5000})

	res, err := e.Run(context.Background(), "manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if !res.LargeKeyspace {
		t.Fatal("LargeKeyspace not set")
	}
	if res.Total != LargeKeyspaceThreshold+1 {
		t.Fatalf("total = %d", res.Total)
	}
	if res.Exported != 0 {
		t.Fatalf("exported = %d, want 0", res.Exported)
	}
}
