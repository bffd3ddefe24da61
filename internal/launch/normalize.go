package launch

import (
	"encoding/json"
	"strconv"
)

// BuildRecord carries the denormalized columns from a persisted build row.
// When present these win over anything in the scan blob, since they were
// validated at ingest time.
type BuildRecord struct {
	BrotliPresent bool
	GzipPresent   bool
}

// Normalize projects an arbitrary persisted scan blob onto the fixed
// NormalizedScan shape. Scan blobs come from different producer versions, so
// every field is resolved through an ordered probe list; the first present
// value of the right type wins and absent fields stay at their zero or nil
// defaults. Normalize never fails: a scan of `{}` or unparseable JSON yields
// a zero-valued NormalizedScan.
func Normalize(scanJSON []byte, build *BuildRecord) NormalizedScan {
	var raw map[string]interface{}
	if len(scanJSON) > 0 {
		_ = json.Unmarshal(scanJSON, &raw)
	}

	summary, _ := raw["summary"].(map[string]interface{})
	compression, _ := raw["compression"].(map[string]interface{})
	signals, _ := raw["signals"].(map[string]interface{})

	out := NormalizedScan{}

	if v, ok := firstNumber(summary["totalBytes"], raw["totalBytes"]); ok {
		out.TotalBytes = int64(v)
	}

	if v, ok := firstNumber(summary["initialDownloadBytes"], raw["initialDownloadBytes"]); ok {
		n := int64(v)
		out.InitialDownloadBytes = &n
	}

	if v, ok := firstNumber(summary["fileCount"], raw["fileCount"]); ok {
		n := int(v)
		out.FileCount = &n
	} else if files, ok := raw["files"].([]interface{}); ok {
		n := len(files)
		out.FileCount = &n
	}

	if v, ok := firstNumber(
		summary["maxFileBytes"], summary["maxSingleFileBytes"],
		raw["maxSingleFileBytes"], raw["maxFileBytes"]); ok {
		n := int64(v)
		out.MaxSingleFileBytes = &n
	}

	if build != nil {
		out.HasBrotli = build.BrotliPresent
		out.HasGzip = build.GzipPresent
	} else {
		if v, ok := firstBool(
			compression["brotli"], compression["brotli_present"],
			raw["brotliPresent"], summary["brotliPresent"]); ok {
			out.HasBrotli = v
		}
		if v, ok := firstBool(
			compression["gzip"], compression["gzip_present"],
			raw["gzipPresent"], summary["gzipPresent"]); ok {
			out.HasGzip = v
		}
	}

	if v, ok := firstBool(
		signals["spaFallbackRequired"], signals["requiresSpaFallback"],
		raw["requiresSpaFallback"]); ok {
		out.RequiresSpaFallback = v
	}

	if v, ok := firstStringSlice(
		signals["sdkDetected"], raw["sdkDetected"], summary["sdkDetected"]); ok {
		out.SDKDetected = v
	}

	return out
}

// asNumber coerces the loose types json.Unmarshal produces. Some older scan
// blobs carry sizes as decimal strings.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func firstNumber(candidates ...interface{}) (float64, bool) {
	for _, c := range candidates {
		if v, ok := asNumber(c); ok {
			return v, true
		}
	}
	return 0, false
}

func firstBool(candidates ...interface{}) (bool, bool) {
	for _, c := range candidates {
		if v, ok := c.(bool); ok {
			return v, true
		}
	}
	return false, false
}

func firstStringSlice(candidates ...interface{}) ([]string, bool) {
	for _, c := range candidates {
		list, ok := c.([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}
