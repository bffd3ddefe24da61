package database

import (
	"fmt"

	"github.com/google/uuid"
)

// seedReferenceData upserts the platform and host reference rows. Idempotent:
// reruns update the rule columns in place, keyed on slug, so rule changes
// ship with the binary.
func (db *DB) seedReferenceData() error {
	type platformSeed struct {
		slug                    string
		name                    string
		initialDownloadMaxMB    *float64
		totalBuildMaxMB         *float64
		maxSingleFileMB         *float64
		maxFileCount            *int
		requiresCompressedBuild bool
		acceptedCompression     string
		requiresSDKInjection    bool
		sdkType                 *string
		notes                   string
	}

	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	s := func(v string) *string { return &v }

	platforms := []platformSeed{
		{
			slug:                    "poki",
			name:                    "Poki",
			initialDownloadMaxMB:    f(10),
			requiresCompressedBuild: true,
			acceptedCompression:     `["brotli","gzip"]`,
			requiresSDKInjection:    true,
			sdkType:                 s("poki"),
			notes:                   "Target ~8-10MB initial download. Treat 10MB as a hard target; excessive load size hurts approval/retention.",
		},
		{
			slug:                    "crazygames",
			name:                    "CrazyGames",
			initialDownloadMaxMB:    f(50),
			totalBuildMaxMB:         f(250),
			maxFileCount:            i(1500),
			requiresCompressedBuild: true,
			acceptedCompression:     `["brotli","gzip"]`,
			requiresSDKInjection:    true,
			sdkType:                 s("crazysdk"),
			notes:                   "Compressed builds only. Initial download <=50MB, total <=250MB, file count <=1500. Prefer Brotli.",
		},
		{
			slug:                    "itchio-html5",
			name:                    "itch.io (HTML5)",
			totalBuildMaxMB:         f(500),
			maxSingleFileMB:         f(200),
			maxFileCount:            i(1000),
			requiresCompressedBuild: false,
			acceptedCompression:     `["none","gzip","brotli"]`,
			requiresSDKInjection:    false,
			notes:                   "ZIP extraction limits: <=1000 files, extracted total <=500MB, any single file <=200MB, path length limits.",
		},
	}

	for _, p := range platforms {
		_, err := db.Exec(`
			INSERT INTO platforms (id, slug, name, initial_download_max_mb, total_build_max_mb, max_single_file_mb, max_file_count,
				requires_compressed_build, accepted_compression, requires_sdk_injection, sdk_type, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				name = excluded.name,
				initial_download_max_mb = excluded.initial_download_max_mb,
				total_build_max_mb = excluded.total_build_max_mb,
				max_single_file_mb = excluded.max_single_file_mb,
				max_file_count = excluded.max_file_count,
				requires_compressed_build = excluded.requires_compressed_build,
				accepted_compression = excluded.accepted_compression,
				requires_sdk_injection = excluded.requires_sdk_injection,
				sdk_type = excluded.sdk_type,
				notes = excluded.notes
		`, uuid.New().String(), p.slug, p.name, p.initialDownloadMaxMB, p.totalBuildMaxMB, p.maxSingleFileMB, p.maxFileCount,
			p.requiresCompressedBuild, p.acceptedCompression, p.requiresSDKInjection, p.sdkType, p.notes)
		if err != nil {
			return fmt.Errorf("failed to seed platform %s: %w", p.slug, err)
		}
	}

	type hostSeed struct {
		slug                       string
		name                       string
		supportsBrotli             bool
		supportsGzip               bool
		requiresManualHeaderConfig bool
		defaultSpaFallback         bool
		edgeNetwork                string
		notes                      string
	}

	hosts := []hostSeed{
		{
			slug: "vercel", name: "Vercel",
			supportsBrotli: true, supportsGzip: true,
			requiresManualHeaderConfig: false, defaultSpaFallback: true,
			edgeNetwork: "vercel-edge",
			notes:       "Strong defaults; still confirm correct Content-Type + encoding headers for Unity assets.",
		},
		{
			slug: "netlify", name: "Netlify",
			supportsBrotli: true, supportsGzip: true,
			requiresManualHeaderConfig: true, defaultSpaFallback: true,
			edgeNetwork: "netlify-edge",
			notes:       "Often requires explicit _headers and _redirects for Unity WebGL + SPA fallback + compression serving.",
		},
		{
			slug: "cloudflare-pages", name: "Cloudflare Pages",
			supportsBrotli: true, supportsGzip: true,
			requiresManualHeaderConfig: true, defaultSpaFallback: true,
			edgeNetwork: "cloudflare",
			notes:       "Great CDN; expect explicit headers/routing rules for Unity WebGL to ensure correct encodings and wasm types.",
		},
	}

	for _, h := range hosts {
		_, err := db.Exec(`
			INSERT INTO hosts (id, slug, name, supports_brotli, supports_gzip, requires_manual_header_config, default_spa_fallback, edge_network, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				name = excluded.name,
				supports_brotli = excluded.supports_brotli,
				supports_gzip = excluded.supports_gzip,
				requires_manual_header_config = excluded.requires_manual_header_config,
				default_spa_fallback = excluded.default_spa_fallback,
				edge_network = excluded.edge_network,
				notes = excluded.notes
		`, uuid.New().String(), h.slug, h.name, h.supportsBrotli, h.supportsGzip,
			h.requiresManualHeaderConfig, h.defaultSpaFallback, h.edgeNetwork, h.notes)
		if err != nil {
			return fmt.Errorf("failed to seed host %s: %w", h.slug, err)
		}
	}

	return nil
}
