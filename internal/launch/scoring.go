package launch

import "math"

// Tuning constants for the platform-fit and host-compatibility rules. These
// are fixed, not derived from a model; changing them changes persisted
// readiness scores, so keep them stable.
const (
	penaltyMissingCompression = 25.0
	penaltyMissingSDK         = 15.0
	penaltyBrotliMismatch     = 18.0
	penaltyGzipMismatch       = 12.0
	penaltySpaFallback        = 15.0
	penaltyManualHeaders      = 6.0

	platformWeight = 0.6
	hostWeight     = 0.4
)

// Deduction explains one penalty applied during scoring. Meta carries the
// raw numbers behind the decision so callers can render "why".
type Deduction struct {
	Reason  string                 `json:"reason"`
	Penalty float64                `json:"penalty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// ScoreBreakdown is a 0-100 score plus the itemized deductions that fully
// explain its distance from 100.
type ScoreBreakdown struct {
	Score      int         `json:"score"`
	Deductions []Deduction `json:"deductions"`
}

// NormalizedScan is the fixed shape the scorer consumes. Optional fields are
// nil when the persisted scan didn't report them; each nil suppresses the
// corresponding rule instead of failing the scoring run.
type NormalizedScan struct {
	TotalBytes           int64    `json:"totalBytes"`
	InitialDownloadBytes *int64   `json:"initialDownloadBytes"`
	FileCount            *int     `json:"fileCount"`
	MaxSingleFileBytes   *int64   `json:"maxSingleFileBytes"`
	HasBrotli            bool     `json:"hasBrotli"`
	HasGzip              bool     `json:"hasGzip"`
	RequiresSpaFallback  bool     `json:"requiresSpaFallback"`
	SDKDetected          []string `json:"sdkDetected"`
}

// PlatformRules describes the constraints a distribution platform imposes on
// a build. Nil limits mean the platform doesn't care.
type PlatformRules struct {
	Name                    string   `json:"name"`
	Slug                    string   `json:"slug"`
	InitialDownloadMaxMB    *float64 `json:"initialDownloadMaxMB"`
	TotalBuildMaxMB         *float64 `json:"totalBuildMaxMB"`
	MaxFileCount            *int     `json:"maxFileCount"`
	MaxSingleFileMB         *float64 `json:"maxSingleFileMB"`
	RequiresCompressedBuild bool     `json:"requiresCompressedBuild"`
	AcceptedCompression     []string `json:"acceptedCompression"`
	RequiresSDKInjection    bool     `json:"requiresSdkInjection"`
	SDKType                 string   `json:"sdkType,omitempty"`
}

// HostRules describes the serving characteristics of a hosting provider.
type HostRules struct {
	Name                       string `json:"name"`
	Slug                       string `json:"slug"`
	SupportsBrotli             bool   `json:"supportsBrotli"`
	SupportsGzip               bool   `json:"supportsGzip"`
	RequiresManualHeaderConfig bool   `json:"requiresManualHeaderConfig"`
	DefaultSpaFallback         bool   `json:"defaultSpaFallback"`
}

// LaunchScore is the composite output: platform fit weighted 0.6, host
// compatibility 0.4. Platform limits are usually hard distribution gates
// while host issues are fixable with configuration, hence the asymmetry.
type LaunchScore struct {
	PlatformFit       ScoreBreakdown `json:"platformFit"`
	HostCompatibility ScoreBreakdown `json:"hostCompatibility"`
	ReadinessScore    int            `json:"readinessScore"`
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

func mb(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScorePlatformFit applies the platform rules to a normalized scan. Each
// rule contributes an independent additive penalty and is skipped when the
// scan field it needs is absent.
func ScorePlatformFit(scan NormalizedScan, rules PlatformRules) ScoreBreakdown {
	score := 100.0
	deductions := make([]Deduction, 0, 4)

	if rules.InitialDownloadMaxMB != nil && scan.InitialDownloadBytes != nil {
		initialMB := mb(*scan.InitialDownloadBytes)
		if initialMB > *rules.InitialDownloadMaxMB {
			over := initialMB - *rules.InitialDownloadMaxMB
			penalty := clamp(over*2.0, 5, 35)
			score -= penalty
			deductions = append(deductions, Deduction{
				Reason:  "Initial download too large",
				Penalty: penalty,
				Meta: map[string]interface{}{
					"initialMB": round2(initialMB),
					"maxMB":     *rules.InitialDownloadMaxMB,
				},
			})
		}
	}

	if rules.TotalBuildMaxMB != nil {
		totalMB := mb(scan.TotalBytes)
		if totalMB > *rules.TotalBuildMaxMB {
			over := totalMB - *rules.TotalBuildMaxMB
			penalty := clamp(over*0.5, 5, 30)
			score -= penalty
			deductions = append(deductions, Deduction{
				Reason:  "Total build too large",
				Penalty: penalty,
				Meta: map[string]interface{}{
					"totalMB": round2(totalMB),
					"maxMB":   *rules.TotalBuildMaxMB,
				},
			})
		}
	}

	if rules.MaxFileCount != nil && scan.FileCount != nil {
		if *scan.FileCount > *rules.MaxFileCount {
			over := *scan.FileCount - *rules.MaxFileCount
			penalty := clamp(float64(over)/50, 3, 20)
			score -= penalty
			deductions = append(deductions, Deduction{
				Reason:  "Too many files",
				Penalty: penalty,
				Meta: map[string]interface{}{
					"fileCount": *scan.FileCount,
					"max":       *rules.MaxFileCount,
				},
			})
		}
	}

	if rules.MaxSingleFileMB != nil && scan.MaxSingleFileBytes != nil {
		maxSingleMB := mb(*scan.MaxSingleFileBytes)
		if maxSingleMB > *rules.MaxSingleFileMB {
			over := maxSingleMB - *rules.MaxSingleFileMB
			penalty := clamp(over*0.4, 3, 20)
			score -= penalty
			deductions = append(deductions, Deduction{
				Reason:  "Single file too large",
				Penalty: penalty,
				Meta: map[string]interface{}{
					"maxSingleMB": round2(maxSingleMB),
					"maxMB":       *rules.MaxSingleFileMB,
				},
			})
		}
	}

	if rules.RequiresCompressedBuild {
		satisfied := (contains(rules.AcceptedCompression, "brotli") && scan.HasBrotli) ||
			(contains(rules.AcceptedCompression, "gzip") && scan.HasGzip)
		if !satisfied {
			score -= penaltyMissingCompression
			deductions = append(deductions, Deduction{
				Reason:  "Missing required compression",
				Penalty: penaltyMissingCompression,
			})
		}
	}

	if rules.RequiresSDKInjection && rules.SDKType != "" {
		if !contains(scan.SDKDetected, rules.SDKType) {
			score -= penaltyMissingSDK
			deductions = append(deductions, Deduction{
				Reason:  "Required SDK not detected",
				Penalty: penaltyMissingSDK,
				Meta:    map[string]interface{}{"sdkType": rules.SDKType},
			})
		}
	}

	return ScoreBreakdown{
		Score:      int(math.Round(clamp(score, 0, 100))),
		Deductions: deductions,
	}
}

// ScoreHostCompatibility applies the host rules to a normalized scan.
func ScoreHostCompatibility(scan NormalizedScan, host HostRules) ScoreBreakdown {
	score := 100.0
	deductions := make([]Deduction, 0, 4)

	if scan.HasBrotli && !host.SupportsBrotli {
		score -= penaltyBrotliMismatch
		deductions = append(deductions, Deduction{
			Reason:  "Build uses Brotli but host may not serve it",
			Penalty: penaltyBrotliMismatch,
		})
	}

	if scan.HasGzip && !host.SupportsGzip {
		score -= penaltyGzipMismatch
		deductions = append(deductions, Deduction{
			Reason:  "Build uses Gzip but host may not serve it",
			Penalty: penaltyGzipMismatch,
		})
	}

	if scan.RequiresSpaFallback && !host.DefaultSpaFallback {
		score -= penaltySpaFallback
		deductions = append(deductions, Deduction{
			Reason:  "SPA fallback likely required but host default is off",
			Penalty: penaltySpaFallback,
		})
	}

	if host.RequiresManualHeaderConfig {
		score -= penaltyManualHeaders
		deductions = append(deductions, Deduction{
			Reason:  "Manual header config needed",
			Penalty: penaltyManualHeaders,
		})
	}

	return ScoreBreakdown{
		Score:      int(math.Round(clamp(score, 0, 100))),
		Deductions: deductions,
	}
}

// Score computes the weighted composite readiness score for one scan against
// one platform and one host. Pure and deterministic; it never fails.
func Score(scan NormalizedScan, platform PlatformRules, host HostRules) LaunchScore {
	platformFit := ScorePlatformFit(scan, platform)
	hostCompat := ScoreHostCompatibility(scan, host)

	readiness := int(math.Round(
		float64(platformFit.Score)*platformWeight + float64(hostCompat.Score)*hostWeight))

	return LaunchScore{
		PlatformFit:       platformFit,
		HostCompatibility: hostCompat,
		ReadinessScore:    readiness,
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
