package scan

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

// Kind tags every scan result so persisted blobs stay identifiable as the
// shape evolves.
const Kind = "webgl_build_scan"

// ErrInvalidArchive indicates the input bytes are not a readable zip container.
var ErrInvalidArchive = errors.New("invalid archive")

// Severity levels for hosting checks.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Compression records which pre-compressed artifact families were found
// anywhere in the archive.
type Compression struct {
	BrotliPresent bool `json:"brotli_present"`
	GzipPresent   bool `json:"gzip_present"`
}

// FileEntry describes one sampled archive entry.
type FileEntry struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// HostingCheck is an advisory message about serving the build correctly.
// These are reminders, not pass/fail gates.
type HostingCheck struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
}

// Summary carries aggregate numbers over the whole archive, computed from
// the zip directory without decompressing every entry. The launch scorer
// reads these through the normalizer.
type Summary struct {
	TotalBytes   int64 `json:"totalBytes"`
	FileCount    int   `json:"fileCount"`
	MaxFileBytes int64 `json:"maxFileBytes"`
}

// Result is the output of inspecting one uploaded build archive. It is
// created once per upload and never mutated afterwards.
type Result struct {
	Kind                        string         `json:"kind"`
	QuickScore                  int            `json:"quick_score"`
	Compression                 Compression    `json:"compression"`
	MemorySettingsDetectedBytes []int64        `json:"memory_settings_detected_bytes"`
	Files                       []FileEntry    `json:"files"`
	HostingChecks               []HostingCheck `json:"hosting_checks"`
	Summary                     *Summary       `json:"summary,omitempty"`
	ScannedAt                   time.Time      `json:"scanned_at"`
}

const (
	// maxLoaderScripts bounds how many loader scripts get decompressed for
	// memory-hint extraction, so adversarial archives can't force unbounded
	// work.
	maxLoaderScripts = 5

	// maxExtraFiles bounds how many entries beyond the important set are read
	// in full for the files listing.
	maxExtraFiles = 25

	// Memory hints outside this open interval are regex false positives.
	memoryFloorBytes = 32 * 1024 * 1024
	memoryCeilBytes  = 8 * 1024 * 1024 * 1024
)

var memoryHintRe = regexp.MustCompile(`(TOTAL_MEMORY|totalMemory|memory)\s*[:=]\s*(\d{7,12})`)

var importantSuffixes = []string{
	".data",
	".data.br",
	".data.gz",
	".wasm",
	".wasm.br",
	".wasm.gz",
	".framework.js",
	".framework.js.br",
	".framework.js.gz",
	".loader.js",
	".loader.js.br",
	".loader.js.gz",
	"index.html",
}

var (
	dataSuffixes = []string{".data", ".data.br", ".data.gz"}
	wasmSuffixes = []string{".wasm", ".wasm.br", ".wasm.gz"}
)

// Inspect walks a zip archive's entries and produces a Result: file
// inventory, archive-wide compression flags, memory hints from loader
// scripts, a heuristic quick score, and advisory hosting checks.
//
// An archive with no recognizable build content still scans; the missing
// wasm/loader penalties push the score down instead of failing the call.
func Inspect(data []byte) (*Result, error) {
	if !filetype.Is(data, "zip") {
		return nil, fmt.Errorf("%w: not a zip container", ErrInvalidArchive)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}

	brotliPresent := false
	gzipPresent := false
	var loaders []*zip.File
	hasData := false
	hasWasm := false

	for _, f := range entries {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".br") {
			brotliPresent = true
		}
		if strings.HasSuffix(name, ".gz") {
			gzipPresent = true
		}
		if strings.HasSuffix(name, ".js") && strings.Contains(name, "loader") {
			loaders = append(loaders, f)
		}
		if hasAnySuffix(name, dataSuffixes) {
			hasData = true
		}
		if hasAnySuffix(name, wasmSuffixes) {
			hasWasm = true
		}
	}
	hasLoader := len(loaders) > 0

	hints := extractMemoryHints(loaders)

	score := 50
	if brotliPresent {
		score += 20
	}
	if gzipPresent {
		score += 10
	}
	if hasData && hasWasm && hasLoader {
		score += 15
	}
	if !hasWasm {
		score -= 25
	}
	if !hasLoader {
		score -= 25
	}
	score = clampInt(score, 0, 100)

	checks := buildHostingChecks(brotliPresent, gzipPresent)

	return &Result{
		Kind:                        Kind,
		QuickScore:                  score,
		Compression:                 Compression{BrotliPresent: brotliPresent, GzipPresent: gzipPresent},
		MemorySettingsDetectedBytes: hints,
		Files:                       sampleFiles(entries),
		HostingChecks:               checks,
		Summary:                     summarize(entries),
		ScannedAt:                   time.Now().UTC(),
	}, nil
}

// extractMemoryHints decodes up to maxLoaderScripts loader scripts and
// collects plausible memory-size values, deduplicated and sorted ascending.
func extractMemoryHints(loaders []*zip.File) []int64 {
	seen := make(map[int64]struct{})

	limit := len(loaders)
	if limit > maxLoaderScripts {
		limit = maxLoaderScripts
	}

	for _, f := range loaders[:limit] {
		text, err := readEntry(f)
		if err != nil {
			continue
		}
		for _, m := range memoryHintRe.FindAllSubmatch(text, -1) {
			v, err := strconv.ParseInt(string(m[2]), 10, 64)
			if err != nil {
				continue
			}
			if v > memoryFloorBytes && v < memoryCeilBytes {
				seen[v] = struct{}{}
			}
		}
	}

	hints := make([]int64, 0, len(seen))
	for v := range seen {
		hints = append(hints, v)
	}
	sort.Slice(hints, func(i, j int) bool { return hints[i] < hints[j] })
	return hints
}

func buildHostingChecks(brotli, gzip bool) []HostingCheck {
	checks := make([]HostingCheck, 0, 4)

	if brotli {
		checks = append(checks, HostingCheck{
			Check:    "Brotli assets detected (.br). Your host must send Content-Encoding: br for those files.",
			Severity: SeverityHigh,
		})
	}
	if gzip {
		checks = append(checks, HostingCheck{
			Check:    "Gzip assets detected (.gz). Your host must send Content-Encoding: gzip for those files.",
			Severity: SeverityMedium,
		})
	}

	checks = append(checks,
		HostingCheck{
			Check:    "Ensure .wasm is served with MIME type: application/wasm",
			Severity: SeverityHigh,
		},
		HostingCheck{
			Check:    "Set long cache headers for immutable build files (Build/*.data, *.wasm, *.js) to improve load speed.",
			Severity: SeverityInfo,
		},
	)

	return checks
}

// sampleFiles reads a bounded, prioritized subset of entries: everything
// matching the important suffixes or living under a build/ path, plus up to
// maxExtraFiles arbitrary others, sorted by decompressed size descending.
func sampleFiles(entries []*zip.File) []FileEntry {
	isImportant := func(name string) bool {
		n := strings.ToLower(name)
		return hasAnySuffix(n, importantSuffixes) || strings.Contains(n, "build/")
	}

	targets := make([]*zip.File, 0, len(entries))
	for _, f := range entries {
		if isImportant(f.Name) {
			targets = append(targets, f)
		}
	}
	extra := 0
	for _, f := range entries {
		if extra >= maxExtraFiles {
			break
		}
		if !isImportant(f.Name) {
			targets = append(targets, f)
			extra++
		}
	}

	seen := make(map[string]struct{}, len(targets))
	files := make([]FileEntry, 0, len(targets))
	for _, f := range targets {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}

		data, err := readEntry(f)
		if err != nil {
			files = append(files, FileEntry{Name: f.Name})
			continue
		}
		sum := sha256.Sum256(data)
		files = append(files, FileEntry{
			Name:      f.Name,
			SizeBytes: int64(len(data)),
			SHA256:    hex.EncodeToString(sum[:])[:16],
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].SizeBytes != files[j].SizeBytes {
			return files[i].SizeBytes > files[j].SizeBytes
		}
		return files[i].Name < files[j].Name
	})
	return files
}

// summarize aggregates sizes across all entries from the zip directory, so
// totals cover the whole archive even though only a subset is read in full.
func summarize(entries []*zip.File) *Summary {
	s := &Summary{FileCount: len(entries)}
	for _, f := range entries {
		size := int64(f.UncompressedSize64)
		s.TotalBytes += size
		if size > s.MaxFileBytes {
			s.MaxFileBytes = size
		}
	}
	return s
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hasAnySuffix(lowerName string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(lowerName, s) {
			return true
		}
	}
	return false
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
