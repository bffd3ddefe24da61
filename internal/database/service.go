package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pressplaylabs/launchcheck/internal/errors"
	"github.com/pressplaylabs/launchcheck/internal/fixpack"
	"github.com/pressplaylabs/launchcheck/internal/launch"
	"github.com/pressplaylabs/launchcheck/internal/scan"
)

// Service provides the business logic over the repository: persisting scans,
// scoring launches, and gating fix-pack generation.
type Service struct {
	repo             *Repository
	freeFixPackLimit int
}

// NewService creates a new service
func NewService(repo *Repository, freeFixPackLimit int) *Service {
	return &Service{
		repo:             repo,
		freeFixPackLimit: freeFixPackLimit,
	}
}

// SaveScan inspects an uploaded archive and persists the result under the
// requesting user's project. A fresh build starts with an empty launch
// profile; scoring fills it in later.
func (s *Service) SaveScan(ipAddress, userAgent, projectName, fileName string, data []byte) (*Build, *scan.Result, error) {
	result, err := scan.Inspect(data)
	if err != nil {
		return nil, nil, err
	}

	blob, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal scan result: %w", err)
	}

	build, err := s.persistBuild(ipAddress, userAgent, projectName, fileName, int64(len(data)),
		result.QuickScore, result.Compression.BrotliPresent, result.Compression.GzipPresent, blob)
	if err != nil {
		return nil, nil, err
	}

	return build, result, nil
}

// ImportScan persists a scan blob produced elsewhere. The denormalized
// columns are probed out of the blob; a blob missing them still imports with
// zero values.
func (s *Service) ImportScan(ipAddress, userAgent, projectName, fileName string, scanJSON json.RawMessage) (*Build, error) {
	var probe struct {
		Kind        string `json:"kind"`
		QuickScore  int    `json:"quick_score"`
		Compression struct {
			BrotliPresent bool `json:"brotli_present"`
			GzipPresent   bool `json:"gzip_present"`
		} `json:"compression"`
		Summary struct {
			TotalBytes int64 `json:"totalBytes"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(scanJSON, &probe); err != nil {
		return nil, apperrors.NewValidationError("scan payload is not valid JSON", err.Error())
	}

	return s.persistBuild(ipAddress, userAgent, projectName, fileName, probe.Summary.TotalBytes,
		probe.QuickScore, probe.Compression.BrotliPresent, probe.Compression.GzipPresent, scanJSON)
}

func (s *Service) persistBuild(ipAddress, userAgent, projectName, fileName string, sizeBytes int64,
	quickScore int, brotli, gzip bool, blob json.RawMessage) (*Build, error) {

	user, err := s.repo.GetOrCreateUser(ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.GetOrCreateProject(user.ID, projectName)
	if err != nil {
		return nil, err
	}

	build := NewBuild(project.ID, fileName, sizeBytes, quickScore, brotli, gzip, blob)
	if err := s.repo.CreateBuild(build); err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &LaunchProfile{
		ID:        uuid.New().String(),
		BuildID:   build.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertLaunchProfile(profile); err != nil {
		return nil, err
	}

	return build, nil
}

// BuildDetail bundles a build with its launch profile and fix-pack host
// recommendation for the detail endpoint.
type BuildDetail struct {
	Build          *Build                 `json:"build"`
	LaunchProfile  *LaunchProfile         `json:"launch_profile,omitempty"`
	Recommendation fixpack.Recommendation `json:"recommendation"`
}

// GetBuildDetail fetches one build with its profile
func (s *Service) GetBuildDetail(buildID string) (*BuildDetail, error) {
	build, err := s.repo.GetBuildByID(buildID)
	if err != nil {
		return nil, err
	}
	if build == nil {
		return nil, apperrors.NewNotFoundError("build", buildID)
	}

	profile, err := s.repo.GetLaunchProfileByBuild(buildID)
	if err != nil {
		return nil, err
	}

	return &BuildDetail{
		Build:          build,
		LaunchProfile:  profile,
		Recommendation: fixpack.RecommendHost(s.scanFromBuild(build)),
	}, nil
}

// GetHistory returns the requesting user's projects and builds
func (s *Service) GetHistory(ipAddress, userAgent string) ([]ProjectHistory, error) {
	user, err := s.repo.GetOrCreateUser(ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	return s.repo.GetHistory(user.ID, 20)
}

// ScoreLaunch normalizes a build's scan, scores it against the chosen
// platform and host, and persists the outcome as the build's launch profile.
func (s *Service) ScoreLaunch(buildID, platformID, hostID string) (*launch.LaunchScore, *LaunchProfile, error) {
	build, err := s.repo.GetBuildByID(buildID)
	if err != nil {
		return nil, nil, err
	}
	if build == nil {
		return nil, nil, apperrors.NewNotFoundError("build", buildID)
	}

	platform, err := s.repo.GetPlatformByID(platformID)
	if err != nil {
		return nil, nil, err
	}
	if platform == nil {
		return nil, nil, apperrors.NewNotFoundError("platform", platformID)
	}

	host, err := s.repo.GetHostByID(hostID)
	if err != nil {
		return nil, nil, err
	}
	if host == nil {
		return nil, nil, apperrors.NewNotFoundError("host", hostID)
	}

	normalized := launch.Normalize(build.ScanResult, &launch.BuildRecord{
		BrotliPresent: build.BrotliPresent,
		GzipPresent:   build.GzipPresent,
	})
	score := launch.Score(normalized, platform.Rules(), host.Rules())

	detail, err := json.Marshal(score)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal score: %w", err)
	}

	now := time.Now()
	profile := &LaunchProfile{
		ID:             uuid.New().String(),
		BuildID:        build.ID,
		PlatformID:     platform.ID,
		HostID:         host.ID,
		ReadinessScore: score.ReadinessScore,
		ScoreDetail:    detail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.UpsertLaunchProfile(profile); err != nil {
		return nil, nil, err
	}

	return &score, profile, nil
}

// ComparisonEntry is one platform's score in a comparison run.
type ComparisonEntry struct {
	Platform string             `json:"platform"`
	Slug     string             `json:"slug"`
	Score    launch.LaunchScore `json:"score"`
}

// CompareLaunch scores a build against every platform for one host, best
// readiness first. Comparison is read-only; it never touches the profile.
func (s *Service) CompareLaunch(buildID, hostID string) ([]ComparisonEntry, error) {
	build, err := s.repo.GetBuildByID(buildID)
	if err != nil {
		return nil, err
	}
	if build == nil {
		return nil, apperrors.NewNotFoundError("build", buildID)
	}

	host, err := s.repo.GetHostByID(hostID)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, apperrors.NewNotFoundError("host", hostID)
	}

	platforms, err := s.repo.ListPlatforms()
	if err != nil {
		return nil, err
	}

	normalized := launch.Normalize(build.ScanResult, &launch.BuildRecord{
		BrotliPresent: build.BrotliPresent,
		GzipPresent:   build.GzipPresent,
	})

	entries := make([]ComparisonEntry, 0, len(platforms))
	for _, p := range platforms {
		entries = append(entries, ComparisonEntry{
			Platform: p.Name,
			Slug:     p.Slug,
			Score:    launch.Score(normalized, p.Rules(), host.Rules()),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score.ReadinessScore > entries[j].Score.ReadinessScore
	})

	return entries, nil
}

// FixPackResult is a gated generation outcome.
type FixPackResult struct {
	Files          map[string]string      `json:"files"`
	Host           fixpack.HostTarget     `json:"host"`
	RemainingUses  int                    `json:"remaining_uses"` // -1 for subscribers
	Recommendation fixpack.Recommendation `json:"recommendation"`
}

// UseFixPack generates a fix pack for a build if the user's quota allows it.
// Subscribers are unlimited; free users get freeFixPackLimit generations.
func (s *Service) UseFixPack(ipAddress, userAgent, buildID string, host fixpack.HostTarget) (*FixPackResult, error) {
	user, err := s.repo.GetOrCreateUser(ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if !user.SubscriptionActive && user.FixPackUses >= s.freeFixPackLimit {
		return nil, apperrors.NewQuotaExceededError(
			"Free fix pack limit reached", user.FixPackUses, s.freeFixPackLimit)
	}

	build, err := s.repo.GetBuildByID(buildID)
	if err != nil {
		return nil, err
	}
	if build == nil {
		return nil, apperrors.NewNotFoundError("build", buildID)
	}

	result := s.scanFromBuild(build)
	pack := fixpack.Generate(result)

	if err := s.repo.RecordFixPackUse(user.ID, build.ID, string(host)); err != nil {
		return nil, err
	}

	remaining := -1
	if !user.SubscriptionActive {
		remaining = s.freeFixPackLimit - user.FixPackUses - 1
		if remaining < 0 {
			remaining = 0
		}
	}

	return &FixPackResult{
		Files:          pack.Files(host),
		Host:           host,
		RemainingUses:  remaining,
		Recommendation: fixpack.RecommendHost(result),
	}, nil
}

// scanFromBuild decodes the stored blob back into a scan result. Decode
// failures fall back to the denormalized columns so old or foreign blobs
// still produce sensible fix packs.
func (s *Service) scanFromBuild(build *Build) *scan.Result {
	var result scan.Result
	if err := json.Unmarshal(build.ScanResult, &result); err != nil {
		return &scan.Result{
			Kind:       scan.Kind,
			QuickScore: build.QuickScore,
			Compression: scan.Compression{
				BrotliPresent: build.BrotliPresent,
				GzipPresent:   build.GzipPresent,
			},
		}
	}
	return &result
}
