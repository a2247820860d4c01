package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"webcorpus-curator/internal/bundle"
)

func writeBundleFile(t *testing.T, dir, name string, docs []bundle.Document) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := bundle.WriteFileAtomic(path, docs); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunHeuristicFilter_EndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	var good bundle.Document
	for i := 0; i < 6; i++ {
		good = append(good, "This is a perfectly ordinary sentence that ends with a period.")
	}
	writeBundleFile(t, dataDir, "a.txt", []bundle.Document{good})

	heuristicFilterFlags = stageFlags{dataDir: dataDir, outDir: outDir, mp: 1}
	if err := runHeuristicFilter(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runHeuristicFilter: %v", err)
	}

	docs, err := bundle.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.txt.meta.json")); err != nil {
		t.Errorf("expected meta sidecar: %v", err)
	}
}

func TestRunHeuristicFilter_WritesOnlySurvivingLines(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	keptLine := "This is a substantive paragraph with more than five words and a period."
	mixed := bundle.Document{
		"Welcome to our site.",
		"Privacy Policy",
		"All rights reserved.",
	}
	// Repeat the surviving sentence enough times to clear Gopher's minimum
	// token count once the boilerplate lines above are dropped by C4.
	for i := 0; i < 6; i++ {
		mixed = append(mixed, keptLine)
	}
	writeBundleFile(t, dataDir, "a.txt", []bundle.Document{mixed})

	heuristicFilterFlags = stageFlags{dataDir: dataDir, outDir: outDir, mp: 1}
	if err := runHeuristicFilter(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runHeuristicFilter: %v", err)
	}

	docs, err := bundle.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1 (document is kept)", len(docs))
	}
	var want bundle.Document
	for i := 0; i < 6; i++ {
		want = append(want, keptLine)
	}
	if docs[0].Join() != want.Join() {
		t.Errorf("got lines %v, want only the surviving lines %v (boilerplate/short lines must be dropped on disk)", docs[0], want)
	}
}

func TestRunPIIMask_EndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	doc := bundle.Document{"contact me at jane.doe@example.com for details"}
	writeBundleFile(t, dataDir, "a.txt", []bundle.Document{doc})

	piiMaskFlags = stageFlags{dataDir: dataDir, outDir: outDir, mp: 1}
	if err := runPIIMask(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runPIIMask: %v", err)
	}

	docs, err := bundle.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	joined := docs[0].Join()
	if joined == doc.Join() {
		t.Error("expected email to be masked")
	}
}

func TestRunExactDedup_EndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	// Unique lines need enough words individually to survive the default
	// 50-word-per-document minimum once the shared duplicate line is dropped.
	uniqueLineA := longUniqueLine(t, "a", 60)
	uniqueLineB := longUniqueLine(t, "b", 60)

	shared := bundle.Document{
		"this exact line appears in every file we write for this test",
		uniqueLineA,
	}
	writeBundleFile(t, dataDir, "a.txt", []bundle.Document{shared})
	writeBundleFile(t, dataDir, "b.txt", []bundle.Document{{
		"this exact line appears in every file we write for this test",
		uniqueLineB,
	}})

	exactDedupFlags = stageFlags{dataDir: dataDir, outDir: outDir, mp: 1}
	if err := runExactDedup(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runExactDedup: %v", err)
	}

	docs, err := bundle.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs in a.txt, want 1 (word count above threshold keeps the doc)", len(docs))
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.txt.meta.json")); err != nil {
		t.Errorf("expected meta sidecar from pass two's jobrunner task: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "b.txt.meta.json")); err != nil {
		t.Errorf("expected meta sidecar from pass two's jobrunner task: %v", err)
	}
}

func longUniqueLine(t *testing.T, tag string, words int) string {
	t.Helper()
	line := ""
	for i := 0; i < words; i++ {
		if i > 0 {
			line += " "
		}
		line += tag + "word" + string(rune('a'+i%26))
	}
	return line
}

func TestDiscoverFiles_SortedAndTruncated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	all, err := discoverFiles(dir, 0)
	if err != nil {
		t.Fatalf("discoverFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.txt"),
	}
	if len(all) != len(want) {
		t.Fatalf("got %d files, want %d", len(all), len(want))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("got %v, want %v", all, want)
			break
		}
	}

	limited, err := discoverFiles(dir, 2)
	if err != nil {
		t.Fatalf("discoverFiles: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d files, want 2", len(limited))
	}
}

func TestStageFlags_WorkersHonorsSingle(t *testing.T) {
	f := stageFlags{single: true, mp: 8}
	if f.workers() != 1 {
		t.Errorf("got %d workers, want 1 when --single set", f.workers())
	}

	f2 := stageFlags{single: false, mp: 4}
	if f2.workers() != 4 {
		t.Errorf("got %d workers, want 4", f2.workers())
	}
}
