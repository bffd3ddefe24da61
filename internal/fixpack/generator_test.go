package fixpack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressplaylabs/launchcheck/internal/scan"
)

func brotliScan() *scan.Result {
	return &scan.Result{
		Kind:        scan.Kind,
		QuickScore:  85,
		Compression: scan.Compression{BrotliPresent: true},
		HostingChecks: []scan.HostingCheck{
			{Check: "Ensure .wasm is served with MIME type: application/wasm", Severity: scan.SeverityHigh},
		},
	}
}

func TestParseHostTarget(t *testing.T) {
	tests := []struct {
		raw    string
		want   HostTarget
		wantOK bool
	}{
		{raw: "vercel", want: HostVercel, wantOK: true},
		{raw: "Netlify", want: HostNetlify, wantOK: true},
		{raw: "  nginx  ", want: HostNginx, wantOK: true},
		{raw: "apache", want: HostApache, wantOK: true},
		{raw: "generic", want: HostGeneric, wantOK: true},
		{raw: "heroku", wantOK: false},
		{raw: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseHostTarget(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRecommendHost(t *testing.T) {
	tests := []struct {
		name string
		comp scan.Compression
		want HostTarget
	}{
		{name: "brotli build goes to netlify", comp: scan.Compression{BrotliPresent: true}, want: HostNetlify},
		{name: "brotli wins over gzip", comp: scan.Compression{BrotliPresent: true, GzipPresent: true}, want: HostNetlify},
		{name: "gzip build goes to vercel", comp: scan.Compression{GzipPresent: true}, want: HostVercel},
		{name: "uncompressed build goes generic", comp: scan.Compression{}, want: HostGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RecommendHost(&scan.Result{Compression: tt.comp})
			assert.Equal(t, tt.want, rec.Host)
			assert.NotEmpty(t, rec.Reason)
		})
	}
}

func TestGenerateEncodingRulesFollowScan(t *testing.T) {
	t.Run("brotli only", func(t *testing.T) {
		p := Generate(brotliScan())

		assert.Contains(t, p.NetlifyHeaders, "Content-Encoding: br")
		assert.NotContains(t, p.NetlifyHeaders, "Content-Encoding: gzip")
		assert.Contains(t, p.NginxConf, "add_header Content-Encoding br;")
		assert.Contains(t, p.Htaccess, "Header set Content-Encoding br")
		assert.Contains(t, p.VercelJSON, `"value": "br"`)
	})

	t.Run("gzip only", func(t *testing.T) {
		res := brotliScan()
		res.Compression = scan.Compression{GzipPresent: true}
		p := Generate(res)

		assert.Contains(t, p.NetlifyHeaders, "Content-Encoding: gzip")
		assert.NotContains(t, p.NetlifyHeaders, "Content-Encoding: br\n")
		assert.Contains(t, p.NginxConf, "add_header Content-Encoding gzip;")
	})

	t.Run("uncompressed build gets no encoding rules", func(t *testing.T) {
		res := brotliScan()
		res.Compression = scan.Compression{}
		p := Generate(res)

		assert.NotContains(t, p.NetlifyHeaders, "Content-Encoding")
		assert.NotContains(t, p.NginxConf, "Content-Encoding")
		assert.NotContains(t, p.Htaccess, "Content-Encoding")
	})
}

func TestGenerateAlwaysCoversWasmAndCaching(t *testing.T) {
	p := Generate(&scan.Result{})

	assert.Contains(t, p.VercelJSON, "application/wasm")
	assert.Contains(t, p.NetlifyHeaders, "application/wasm")
	assert.Contains(t, p.NginxConf, "application/wasm")
	assert.Contains(t, p.Htaccess, "AddType application/wasm .wasm")

	for _, content := range []string{p.VercelJSON, p.NetlifyHeaders, p.NginxConf, p.Htaccess} {
		assert.Contains(t, content, "max-age=31536000, immutable")
	}
}

func TestGenerateVercelJSONIsValidJSON(t *testing.T) {
	res := brotliScan()
	res.Compression.GzipPresent = true
	p := Generate(res)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(p.VercelJSON), &parsed))
	assert.Contains(t, parsed, "headers")
}

func TestPackFiles(t *testing.T) {
	p := Generate(brotliScan())

	tests := []struct {
		host HostTarget
		want []string
	}{
		{host: HostVercel, want: []string{"README.md", "vercel.json"}},
		{host: HostNetlify, want: []string{"README.md", "_headers"}},
		{host: HostNginx, want: []string{"README.md", "nginx.conf"}},
		{host: HostApache, want: []string{"README.md", ".htaccess"}},
		{host: HostGeneric, want: []string{"README.md", "_headers", ".htaccess"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.host), func(t *testing.T) {
			files := p.Files(tt.host)
			require.Len(t, files, len(tt.want))
			for _, name := range tt.want {
				assert.NotEmpty(t, files[name])
			}
		})
	}
}

func TestReadmeSummarizesScan(t *testing.T) {
	p := Generate(brotliScan())

	assert.Contains(t, p.Readme, "Quick score: 85/100")
	assert.Contains(t, p.Readme, "Brotli artifacts: yes")
	assert.Contains(t, p.Readme, "Gzip artifacts: no")
	assert.Contains(t, p.Readme, "application/wasm")
}
