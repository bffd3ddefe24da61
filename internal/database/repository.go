package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateUser gets an existing user or creates a new one based on IP address
func (r *Repository) GetOrCreateUser(ipAddress, userAgent string) (*User, error) {
	var user User
	err := r.db.QueryRow(`
		SELECT id, ip_address, user_agent, subscription_active, fix_pack_uses, created_at, updated_at
		FROM users
		WHERE ip_address = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, ipAddress).Scan(
		&user.ID, &user.IPAddress, &user.UserAgent,
		&user.SubscriptionActive, &user.FixPackUses, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == nil {
		// User exists, update last seen
		_, err = r.db.Exec(`
			UPDATE users SET updated_at = ?, user_agent = ? WHERE id = ?
		`, time.Now(), userAgent, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return &user, nil
	}

	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// User doesn't exist, create new one
	user = *NewUser(ipAddress, userAgent)
	_, err = r.db.Exec(`
		INSERT INTO users (id, ip_address, user_agent, subscription_active, fix_pack_uses, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.IPAddress, user.UserAgent, user.SubscriptionActive, user.FixPackUses, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetOrCreateProject gets or creates a project by user and name
func (r *Repository) GetOrCreateProject(userID, name string) (*Project, error) {
	var project Project
	err := r.db.QueryRow(`
		SELECT id, user_id, name, created_at
		FROM projects
		WHERE user_id = ? AND name = ?
	`, userID, name).Scan(&project.ID, &project.UserID, &project.Name, &project.CreatedAt)

	if err == nil {
		return &project, nil
	}

	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	project = *NewProject(userID, name)
	_, err = r.db.Exec(`
		INSERT INTO projects (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, project.ID, project.UserID, project.Name, project.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// CreateBuild persists a scanned build
func (r *Repository) CreateBuild(build *Build) error {
	stmt, err := r.db.GetPreparedStatement("insert_build")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		build.ID, build.ProjectID, build.FileName, build.SizeBytes,
		build.QuickScore, build.BrotliPresent, build.GzipPresent,
		string(build.ScanResult), build.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create build: %w", err)
	}

	return nil
}

// GetBuildByID fetches one build row
func (r *Repository) GetBuildByID(id string) (*Build, error) {
	stmt, err := r.db.GetPreparedStatement("get_build_by_id")
	if err != nil {
		return nil, err
	}

	var build Build
	var scanResult string
	err = stmt.QueryRow(id).Scan(
		&build.ID, &build.ProjectID, &build.FileName, &build.SizeBytes,
		&build.QuickScore, &build.BrotliPresent, &build.GzipPresent,
		&scanResult, &build.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}

	build.ScanResult = []byte(scanResult)
	return &build, nil
}

// GetBuildOwner returns the user ID owning a build
func (r *Repository) GetBuildOwner(buildID string) (string, error) {
	var userID string
	err := r.db.QueryRow(`
		SELECT p.user_id FROM builds b
		JOIN projects p ON p.id = b.project_id
		WHERE b.id = ?
	`, buildID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get build owner: %w", err)
	}
	return userID, nil
}

// ProjectHistory is a project with its builds, newest first.
type ProjectHistory struct {
	Project Project `json:"project"`
	Builds  []Build `json:"builds"`
}

// GetHistory returns the user's projects with their builds, newest build first
func (r *Repository) GetHistory(userID string, limit int) ([]ProjectHistory, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, created_at
		FROM projects
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	history := make([]ProjectHistory, 0)
	for rows.Next() {
		var project Project
		if err := rows.Scan(&project.ID, &project.UserID, &project.Name, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		history = append(history, ProjectHistory{Project: project, Builds: []Build{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	for i := range history {
		builds, err := r.getBuildsForProject(history[i].Project.ID, limit)
		if err != nil {
			return nil, err
		}
		history[i].Builds = builds
	}

	return history, nil
}

func (r *Repository) getBuildsForProject(projectID string, limit int) ([]Build, error) {
	rows, err := r.db.Query(`
		SELECT id, project_id, file_name, size_bytes, quick_score, brotli_present, gzip_present, scan_result, created_at
		FROM builds
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	builds := make([]Build, 0)
	for rows.Next() {
		var build Build
		var scanResult string
		if err := rows.Scan(
			&build.ID, &build.ProjectID, &build.FileName, &build.SizeBytes,
			&build.QuickScore, &build.BrotliPresent, &build.GzipPresent,
			&scanResult, &build.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		build.ScanResult = []byte(scanResult)
		builds = append(builds, build)
	}

	return builds, rows.Err()
}

// ListPlatforms returns all platform reference rows ordered by slug
func (r *Repository) ListPlatforms() ([]Platform, error) {
	stmt, err := r.db.GetPreparedStatement("get_platforms")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	defer rows.Close()

	platforms := make([]Platform, 0)
	for rows.Next() {
		var p Platform
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name,
			&p.InitialDownloadMaxMB, &p.TotalBuildMaxMB, &p.MaxSingleFileMB, &p.MaxFileCount,
			&p.RequiresCompressedBuild, &p.AcceptedCompression, &p.RequiresSDKInjection,
			&p.SDKType, &p.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}

	return platforms, rows.Err()
}

// GetPlatformByID fetches one platform row
func (r *Repository) GetPlatformByID(id string) (*Platform, error) {
	var p Platform
	err := r.db.QueryRow(`
		SELECT id, slug, name, initial_download_max_mb, total_build_max_mb, max_single_file_mb, max_file_count,
			requires_compressed_build, accepted_compression, requires_sdk_injection, sdk_type, COALESCE(notes, '')
		FROM platforms WHERE id = ? OR slug = ?
	`, id, id).Scan(
		&p.ID, &p.Slug, &p.Name,
		&p.InitialDownloadMaxMB, &p.TotalBuildMaxMB, &p.MaxSingleFileMB, &p.MaxFileCount,
		&p.RequiresCompressedBuild, &p.AcceptedCompression, &p.RequiresSDKInjection,
		&p.SDKType, &p.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform: %w", err)
	}
	return &p, nil
}

// ListHosts returns all host reference rows ordered by slug
func (r *Repository) ListHosts() ([]Host, error) {
	stmt, err := r.db.GetPreparedStatement("get_hosts")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	hosts := make([]Host, 0)
	for rows.Next() {
		var h Host
		if err := rows.Scan(
			&h.ID, &h.Slug, &h.Name,
			&h.SupportsBrotli, &h.SupportsGzip, &h.RequiresManualHeaderConfig, &h.DefaultSpaFallback,
			&h.EdgeNetwork, &h.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, h)
	}

	return hosts, rows.Err()
}

// GetHostByID fetches one host row
func (r *Repository) GetHostByID(id string) (*Host, error) {
	var h Host
	err := r.db.QueryRow(`
		SELECT id, slug, name, supports_brotli, supports_gzip, requires_manual_header_config, default_spa_fallback,
			edge_network, COALESCE(notes, '')
		FROM hosts WHERE id = ? OR slug = ?
	`, id, id).Scan(
		&h.ID, &h.Slug, &h.Name,
		&h.SupportsBrotli, &h.SupportsGzip, &h.RequiresManualHeaderConfig, &h.DefaultSpaFallback,
		&h.EdgeNetwork, &h.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	return &h, nil
}

// UpsertLaunchProfile writes the scoring outcome for a build, replacing any
// previous profile for the same build
func (r *Repository) UpsertLaunchProfile(profile *LaunchProfile) error {
	stmt, err := r.db.GetPreparedStatement("upsert_launch_profile")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		profile.ID, profile.BuildID, profile.PlatformID, profile.HostID,
		profile.ReadinessScore, string(profile.ScoreDetail),
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert launch profile: %w", err)
	}

	return nil
}

// GetLaunchProfileByBuild fetches a build's launch profile, nil when unset
func (r *Repository) GetLaunchProfileByBuild(buildID string) (*LaunchProfile, error) {
	var profile LaunchProfile
	var detail sql.NullString
	var platformID, hostID sql.NullString
	err := r.db.QueryRow(`
		SELECT id, build_id, platform_id, host_id, readiness_score, score_detail, created_at, updated_at
		FROM launch_profiles WHERE build_id = ?
	`, buildID).Scan(
		&profile.ID, &profile.BuildID, &platformID, &hostID,
		&profile.ReadinessScore, &detail, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get launch profile: %w", err)
	}

	profile.PlatformID = platformID.String
	profile.HostID = hostID.String
	if detail.Valid {
		profile.ScoreDetail = []byte(detail.String)
	}
	return &profile, nil
}

// RecordFixPackUse logs a fix-pack generation and bumps the user's counter
func (r *Repository) RecordFixPackUse(userID, buildID, host string) error {
	use := &FixPackUse{
		ID:        uuid.New().String(),
		UserID:    userID,
		BuildID:   buildID,
		Host:      host,
		CreatedAt: time.Now(),
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO fix_pack_uses (id, user_id, build_id, host, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, use.ID, use.UserID, use.BuildID, use.Host, use.CreatedAt); err != nil {
		return fmt.Errorf("failed to record fix pack use: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE users SET fix_pack_uses = fix_pack_uses + 1, updated_at = ? WHERE id = ?
	`, time.Now(), userID); err != nil {
		return fmt.Errorf("failed to bump fix pack counter: %w", err)
	}

	return tx.Commit()
}

// SetSubscriptionActive flips a user's subscription flag
func (r *Repository) SetSubscriptionActive(userID string, active bool) error {
	_, err := r.db.Exec(`
		UPDATE users SET subscription_active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}
