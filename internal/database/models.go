package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pressplaylabs/launchcheck/internal/launch"
)

// User represents an account identified by IP address.
type User struct {
	ID                 string    `json:"id" db:"id"`
	IPAddress          string    `json:"-" db:"ip_address"`
	UserAgent          string    `json:"-" db:"user_agent"`
	SubscriptionActive bool      `json:"subscription_active" db:"subscription_active"`
	FixPackUses        int       `json:"fix_pack_uses" db:"fix_pack_uses"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Project groups a user's builds under a name. Unique per user+name.
type Project struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Build is one scanned upload. The full scan blob is stored opaquely in
// ScanResult; the columns beside it are denormalized for cheap queries.
type Build struct {
	ID            string          `json:"id" db:"id"`
	ProjectID     string          `json:"project_id" db:"project_id"`
	FileName      string          `json:"file_name" db:"file_name"`
	SizeBytes     int64           `json:"size_bytes" db:"size_bytes"`
	QuickScore    int             `json:"quick_score" db:"quick_score"`
	BrotliPresent bool            `json:"brotli_present" db:"brotli_present"`
	GzipPresent   bool            `json:"gzip_present" db:"gzip_present"`
	ScanResult    json.RawMessage `json:"scan_result" db:"scan_result"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// LaunchProfile is the persisted scoring outcome for a build against a
// chosen platform and host. One profile per build; rescoring upserts.
type LaunchProfile struct {
	ID             string          `json:"id" db:"id"`
	BuildID        string          `json:"build_id" db:"build_id"`
	PlatformID     string          `json:"platform_id,omitempty" db:"platform_id"`
	HostID         string          `json:"host_id,omitempty" db:"host_id"`
	ReadinessScore int             `json:"readiness_score" db:"readiness_score"`
	ScoreDetail    json.RawMessage `json:"score_detail,omitempty" db:"score_detail"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Platform is a reference-table row describing a distribution platform.
// Nullable limit columns map to nil rule pointers.
type Platform struct {
	ID                      string          `db:"id"`
	Slug                    string          `db:"slug"`
	Name                    string          `db:"name"`
	InitialDownloadMaxMB    sql.NullFloat64 `db:"initial_download_max_mb"`
	TotalBuildMaxMB         sql.NullFloat64 `db:"total_build_max_mb"`
	MaxSingleFileMB         sql.NullFloat64 `db:"max_single_file_mb"`
	MaxFileCount            sql.NullInt64   `db:"max_file_count"`
	RequiresCompressedBuild bool            `db:"requires_compressed_build"`
	AcceptedCompression     string          `db:"accepted_compression"`
	RequiresSDKInjection    bool            `db:"requires_sdk_injection"`
	SDKType                 sql.NullString  `db:"sdk_type"`
	Notes                   string          `db:"notes"`
}

// Rules converts the row into the scorer's rule shape. The accepted
// compression column holds a JSON string array; anything unparseable is
// treated as empty rather than failing a scoring request.
func (p *Platform) Rules() launch.PlatformRules {
	rules := launch.PlatformRules{
		Name:                    p.Name,
		Slug:                    p.Slug,
		RequiresCompressedBuild: p.RequiresCompressedBuild,
		RequiresSDKInjection:    p.RequiresSDKInjection,
	}

	if p.InitialDownloadMaxMB.Valid {
		v := p.InitialDownloadMaxMB.Float64
		rules.InitialDownloadMaxMB = &v
	}
	if p.TotalBuildMaxMB.Valid {
		v := p.TotalBuildMaxMB.Float64
		rules.TotalBuildMaxMB = &v
	}
	if p.MaxSingleFileMB.Valid {
		v := p.MaxSingleFileMB.Float64
		rules.MaxSingleFileMB = &v
	}
	if p.MaxFileCount.Valid {
		v := int(p.MaxFileCount.Int64)
		rules.MaxFileCount = &v
	}
	if p.SDKType.Valid {
		rules.SDKType = p.SDKType.String
	}

	var accepted []string
	if err := json.Unmarshal([]byte(p.AcceptedCompression), &accepted); err == nil {
		rules.AcceptedCompression = accepted
	}

	return rules
}

// MarshalJSON flattens the nullable columns into the rules shape plus notes,
// so API responses don't leak sql.Null* wrappers.
func (p *Platform) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Notes string `json:"notes,omitempty"`
		launch.PlatformRules
	}{ID: p.ID, Notes: p.Notes, PlatformRules: p.Rules()})
}

// Host is a reference-table row describing a hosting provider.
type Host struct {
	ID                         string         `db:"id"`
	Slug                       string         `db:"slug"`
	Name                       string         `db:"name"`
	SupportsBrotli             bool           `db:"supports_brotli"`
	SupportsGzip               bool           `db:"supports_gzip"`
	RequiresManualHeaderConfig bool           `db:"requires_manual_header_config"`
	DefaultSpaFallback         bool           `db:"default_spa_fallback"`
	EdgeNetwork                sql.NullString `db:"edge_network"`
	Notes                      string         `db:"notes"`
}

// Rules converts the row into the scorer's rule shape.
func (h *Host) Rules() launch.HostRules {
	return launch.HostRules{
		Name:                       h.Name,
		Slug:                       h.Slug,
		SupportsBrotli:             h.SupportsBrotli,
		SupportsGzip:               h.SupportsGzip,
		RequiresManualHeaderConfig: h.RequiresManualHeaderConfig,
		DefaultSpaFallback:         h.DefaultSpaFallback,
	}
}

// MarshalJSON flattens the nullable edge network column.
func (h *Host) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string `json:"id"`
		EdgeNetwork string `json:"edgeNetwork,omitempty"`
		Notes       string `json:"notes,omitempty"`
		launch.HostRules
	}{ID: h.ID, EdgeNetwork: h.EdgeNetwork.String, Notes: h.Notes, HostRules: h.Rules()})
}

// FixPackUse records one gated fix-pack generation for quota accounting.
type FixPackUse struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BuildID   string    `json:"build_id" db:"build_id"`
	Host      string    `json:"host" db:"host"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewUser creates a new user with generated ID.
func NewUser(ipAddress, userAgent string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New().String(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewProject creates a new project with generated ID.
func NewProject(userID, name string) *Project {
	return &Project{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// NewBuild creates a build row from an upload and its scan blob.
func NewBuild(projectID, fileName string, sizeBytes int64, quickScore int, brotli, gzip bool, scanResult json.RawMessage) *Build {
	return &Build{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		FileName:      fileName,
		SizeBytes:     sizeBytes,
		QuickScore:    quickScore,
		BrotliPresent: brotli,
		GzipPresent:   gzip,
		ScanResult:    scanResult,
		CreatedAt:     time.Now(),
	}
}
