package types

import "encoding/json"

// ScanImportRequest represents the request structure for importing a scan
// produced elsewhere (CI pipelines, the CLI scanner)
type ScanImportRequest struct {
	ProjectName string          `json:"projectName" binding:"required"`
	FileName    string          `json:"fileName"`
	Scan        json.RawMessage `json:"scan" binding:"required"`
}

// LaunchScoreRequest represents the request structure for scoring a build
// against a platform and host pairing
type LaunchScoreRequest struct {
	BuildID    string `json:"buildId" binding:"required"`
	PlatformID string `json:"platformId" binding:"required"`
	HostID     string `json:"hostId" binding:"required"`
}

// LaunchCompareRequest represents the request structure for ranking a build
// across all seeded platforms
type LaunchCompareRequest struct {
	BuildID string `json:"buildId" binding:"required"`
	HostID  string `json:"hostId" binding:"required"`
}

// FixPackRequest represents the request structure for generating hosting
// configuration files for a build
type FixPackRequest struct {
	BuildID string `json:"buildId" binding:"required"`
	Host    string `json:"host"`
}
