package launch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToleratesEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "nil bytes", in: nil},
		{name: "empty object", in: []byte(`{}`)},
		{name: "unparseable json", in: []byte(`{"summary":`)},
		{name: "wrong types everywhere", in: []byte(`{"summary":"nope","files":42,"compression":[]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, nil)

			assert.Equal(t, int64(0), got.TotalBytes)
			assert.Nil(t, got.InitialDownloadBytes)
			assert.Nil(t, got.FileCount)
			assert.Nil(t, got.MaxSingleFileBytes)
			assert.False(t, got.HasBrotli)
			assert.False(t, got.HasGzip)
			assert.False(t, got.RequiresSpaFallback)
			assert.Nil(t, got.SDKDetected)
		})
	}
}

func TestNormalizeSummaryKeysWin(t *testing.T) {
	scan := []byte(`{
		"summary": {"totalBytes": 1000, "fileCount": 7, "maxFileBytes": 400},
		"totalBytes": 9999,
		"fileCount": 99,
		"maxFileBytes": 8888
	}`)

	got := Normalize(scan, nil)

	assert.Equal(t, int64(1000), got.TotalBytes)
	require.NotNil(t, got.FileCount)
	assert.Equal(t, 7, *got.FileCount)
	require.NotNil(t, got.MaxSingleFileBytes)
	assert.Equal(t, int64(400), *got.MaxSingleFileBytes)
}

func TestNormalizeFlatKeysAsFallback(t *testing.T) {
	scan := []byte(`{
		"totalBytes": 2048,
		"fileCount": 12,
		"maxSingleFileBytes": 512,
		"initialDownloadBytes": 256,
		"brotliPresent": true,
		"gzipPresent": true,
		"requiresSpaFallback": true,
		"sdkDetected": ["poki"]
	}`)

	got := Normalize(scan, nil)

	assert.Equal(t, int64(2048), got.TotalBytes)
	require.NotNil(t, got.FileCount)
	assert.Equal(t, 12, *got.FileCount)
	require.NotNil(t, got.MaxSingleFileBytes)
	assert.Equal(t, int64(512), *got.MaxSingleFileBytes)
	require.NotNil(t, got.InitialDownloadBytes)
	assert.Equal(t, int64(256), *got.InitialDownloadBytes)
	assert.True(t, got.HasBrotli)
	assert.True(t, got.HasGzip)
	assert.True(t, got.RequiresSpaFallback)
	assert.Equal(t, []string{"poki"}, got.SDKDetected)
}

func TestNormalizeStringNumbersParse(t *testing.T) {
	scan := []byte(`{"summary": {"totalBytes": "4096", "fileCount": "3"}}`)

	got := Normalize(scan, nil)

	assert.Equal(t, int64(4096), got.TotalBytes)
	require.NotNil(t, got.FileCount)
	assert.Equal(t, 3, *got.FileCount)
}

func TestNormalizeFileCountFallsBackToFilesLength(t *testing.T) {
	scan := []byte(`{"files": [{"name": "a"}, {"name": "b"}, {"name": "c"}]}`)

	got := Normalize(scan, nil)

	require.NotNil(t, got.FileCount)
	assert.Equal(t, 3, *got.FileCount)
}

func TestNormalizeCompressionProbes(t *testing.T) {
	t.Run("nested snake_case flags", func(t *testing.T) {
		scan := []byte(`{"compression": {"brotli_present": true, "gzip_present": false}}`)
		got := Normalize(scan, nil)
		assert.True(t, got.HasBrotli)
		assert.False(t, got.HasGzip)
	})

	t.Run("nested short flags", func(t *testing.T) {
		scan := []byte(`{"compression": {"brotli": false, "gzip": true}}`)
		got := Normalize(scan, nil)
		assert.False(t, got.HasBrotli)
		assert.True(t, got.HasGzip)
	})
}

func TestNormalizeBuildRowWinsOverScanBlob(t *testing.T) {
	// The persisted row was validated at ingest; the blob may disagree with
	// it, and the row wins even when its value is false.
	scan := []byte(`{"compression": {"brotli_present": true, "gzip_present": true}}`)

	got := Normalize(scan, &BuildRecord{BrotliPresent: false, GzipPresent: true})

	assert.False(t, got.HasBrotli)
	assert.True(t, got.HasGzip)
}

func TestNormalizeSignalsBlock(t *testing.T) {
	scan := []byte(`{
		"signals": {
			"spaFallbackRequired": true,
			"sdkDetected": ["crazysdk", "poki"]
		}
	}`)

	got := Normalize(scan, nil)

	assert.True(t, got.RequiresSpaFallback)
	assert.Equal(t, []string{"crazysdk", "poki"}, got.SDKDetected)
}

func TestNormalizeFeedsScorerEndToEnd(t *testing.T) {
	// An uncompressed build against a platform that requires compression must
	// surface the exact missing-compression deduction.
	scan := []byte(`{
		"summary": {"totalBytes": 5242880, "fileCount": 10, "maxFileBytes": 2097152},
		"compression": {"brotli_present": false, "gzip_present": false}
	}`)

	normalized := Normalize(scan, nil)
	breakdown := ScorePlatformFit(normalized, PlatformRules{
		Name: "Poki", Slug: "poki",
		RequiresCompressedBuild: true,
		AcceptedCompression:     []string{"brotli", "gzip"},
	})

	assert.Equal(t, 75, breakdown.Score)
	require.Len(t, breakdown.Deductions, 1)
	assert.Equal(t, "Missing required compression", breakdown.Deductions[0].Reason)
	assert.Equal(t, 25.0, breakdown.Deductions[0].Penalty)
}
