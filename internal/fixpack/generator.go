// Package fixpack renders ready-to-drop-in hosting configuration for a
// scanned build: wasm MIME type, Content-Encoding for pre-compressed
// artifacts, and immutable cache headers, per host target.
package fixpack

import (
	"fmt"
	"strings"

	"github.com/pressplaylabs/launchcheck/internal/scan"
)

// HostTarget selects which config files a pack download includes.
type HostTarget string

const (
	HostVercel  HostTarget = "vercel"
	HostNetlify HostTarget = "netlify"
	HostNginx   HostTarget = "nginx"
	HostApache  HostTarget = "apache"
	HostGeneric HostTarget = "generic"
)

// ParseHostTarget validates a raw host string from a request.
func ParseHostTarget(raw string) (HostTarget, bool) {
	switch HostTarget(strings.ToLower(strings.TrimSpace(raw))) {
	case HostVercel:
		return HostVercel, true
	case HostNetlify:
		return HostNetlify, true
	case HostNginx:
		return HostNginx, true
	case HostApache:
		return HostApache, true
	case HostGeneric:
		return HostGeneric, true
	default:
		return "", false
	}
}

// Recommendation pairs a suggested host target with a human explanation.
type Recommendation struct {
	Host   HostTarget `json:"host"`
	Reason string     `json:"reason"`
}

// RecommendHost suggests a host target from the archive's compression
// profile. Simple heuristics, honest about it.
func RecommendHost(res *scan.Result) Recommendation {
	switch {
	case res.Compression.BrotliPresent:
		return Recommendation{
			Host:   HostNetlify,
			Reason: "Brotli (.br) detected. Netlify (or Nginx) tends to be the quickest path to correct Content-Encoding + headers.",
		}
	case res.Compression.GzipPresent:
		return Recommendation{
			Host:   HostVercel,
			Reason: "Gzip (.gz) detected. Vercel is a good fast default for testing because deploys are simple and repeatable.",
		}
	default:
		return Recommendation{
			Host:   HostGeneric,
			Reason: "No pre-compressed assets detected. A generic host is fine for testing - just ensure correct MIME for .wasm + sensible caching.",
		}
	}
}

// Pack holds the rendered config text for every supported host. Rendering is
// cheap, so all variants are produced up front and Files picks per target.
type Pack struct {
	VercelJSON     string `json:"vercelJson"`
	NetlifyHeaders string `json:"netlifyHeaders"`
	NginxConf      string `json:"nginxConf"`
	Htaccess       string `json:"htaccess"`
	Readme         string `json:"readme"`
}

// Generate renders a fix pack tailored to the scan: encoding rules are only
// emitted for compression families the archive actually contains.
func Generate(res *scan.Result) *Pack {
	br := res.Compression.BrotliPresent
	gz := res.Compression.GzipPresent

	return &Pack{
		VercelJSON:     renderVercelJSON(br, gz),
		NetlifyHeaders: renderNetlifyHeaders(br, gz),
		NginxConf:      renderNginxConf(br, gz),
		Htaccess:       renderHtaccess(br, gz),
		Readme:         renderReadme(res),
	}
}

// Files returns the file name to content mapping a download for the given
// host should contain. Generic targets get both plain-header variants since
// we can't know the server software.
func (p *Pack) Files(host HostTarget) map[string]string {
	files := map[string]string{"README.md": p.Readme}

	switch host {
	case HostVercel:
		files["vercel.json"] = p.VercelJSON
	case HostNetlify:
		files["_headers"] = p.NetlifyHeaders
	case HostNginx:
		files["nginx.conf"] = p.NginxConf
	case HostApache:
		files[".htaccess"] = p.Htaccess
	default:
		files["_headers"] = p.NetlifyHeaders
		files[".htaccess"] = p.Htaccess
	}

	return files
}

func renderVercelJSON(br, gz bool) string {
	var b strings.Builder
	b.WriteString("{\n  \"headers\": [\n")
	b.WriteString(`    {
      "source": "/(.*)\\.wasm",
      "headers": [
        { "key": "Content-Type", "value": "application/wasm" },
        { "key": "Cache-Control", "value": "public, max-age=31536000, immutable" }
      ]
    }`)
	if br {
		b.WriteString(",\n")
		b.WriteString(`    {
      "source": "/(.*)\\.br",
      "headers": [
        { "key": "Content-Encoding", "value": "br" },
        { "key": "Cache-Control", "value": "public, max-age=31536000, immutable" }
      ]
    }`)
	}
	if gz {
		b.WriteString(",\n")
		b.WriteString(`    {
      "source": "/(.*)\\.gz",
      "headers": [
        { "key": "Content-Encoding", "value": "gzip" },
        { "key": "Cache-Control", "value": "public, max-age=31536000, immutable" }
      ]
    }`)
	}
	b.WriteString(",\n")
	b.WriteString(`    {
      "source": "/Build/(.*)",
      "headers": [
        { "key": "Cache-Control", "value": "public, max-age=31536000, immutable" }
      ]
    }`)
	b.WriteString("\n  ]\n}\n")
	return b.String()
}

func renderNetlifyHeaders(br, gz bool) string {
	var b strings.Builder
	b.WriteString("/*.wasm\n")
	b.WriteString("  Content-Type: application/wasm\n")
	b.WriteString("  Cache-Control: public, max-age=31536000, immutable\n\n")
	if br {
		b.WriteString("/*.br\n")
		b.WriteString("  Content-Encoding: br\n")
		b.WriteString("  Cache-Control: public, max-age=31536000, immutable\n\n")
		b.WriteString("/*.wasm.br\n")
		b.WriteString("  Content-Type: application/wasm\n")
		b.WriteString("  Content-Encoding: br\n\n")
	}
	if gz {
		b.WriteString("/*.gz\n")
		b.WriteString("  Content-Encoding: gzip\n")
		b.WriteString("  Cache-Control: public, max-age=31536000, immutable\n\n")
		b.WriteString("/*.wasm.gz\n")
		b.WriteString("  Content-Type: application/wasm\n")
		b.WriteString("  Content-Encoding: gzip\n\n")
	}
	b.WriteString("/Build/*\n")
	b.WriteString("  Cache-Control: public, max-age=31536000, immutable\n")
	return b.String()
}

func renderNginxConf(br, gz bool) string {
	var b strings.Builder
	b.WriteString("# Serve a WebGL build correctly. Include inside your server block.\n\n")
	b.WriteString("types {\n    application/wasm wasm;\n}\n\n")
	if br {
		b.WriteString("location ~ \\.br$ {\n")
		b.WriteString("    add_header Content-Encoding br;\n")
		b.WriteString("    add_header Cache-Control \"public, max-age=31536000, immutable\";\n")
		b.WriteString("    gzip off;\n")
		b.WriteString("}\n\n")
		b.WriteString("location ~ \\.wasm\\.br$ {\n")
		b.WriteString("    types { }\n")
		b.WriteString("    default_type application/wasm;\n")
		b.WriteString("    add_header Content-Encoding br;\n")
		b.WriteString("}\n\n")
	}
	if gz {
		b.WriteString("location ~ \\.gz$ {\n")
		b.WriteString("    add_header Content-Encoding gzip;\n")
		b.WriteString("    add_header Cache-Control \"public, max-age=31536000, immutable\";\n")
		b.WriteString("    gzip off;\n")
		b.WriteString("}\n\n")
		b.WriteString("location ~ \\.wasm\\.gz$ {\n")
		b.WriteString("    types { }\n")
		b.WriteString("    default_type application/wasm;\n")
		b.WriteString("    add_header Content-Encoding gzip;\n")
		b.WriteString("}\n\n")
	}
	b.WriteString("location /Build/ {\n")
	b.WriteString("    add_header Cache-Control \"public, max-age=31536000, immutable\";\n")
	b.WriteString("}\n")
	return b.String()
}

func renderHtaccess(br, gz bool) string {
	var b strings.Builder
	b.WriteString("AddType application/wasm .wasm\n\n")
	if br {
		b.WriteString("<FilesMatch \"\\.br$\">\n")
		b.WriteString("  Header set Content-Encoding br\n")
		b.WriteString("</FilesMatch>\n")
		b.WriteString("<FilesMatch \"\\.wasm\\.br$\">\n")
		b.WriteString("  ForceType application/wasm\n")
		b.WriteString("</FilesMatch>\n\n")
	}
	if gz {
		b.WriteString("<FilesMatch \"\\.gz$\">\n")
		b.WriteString("  Header set Content-Encoding gzip\n")
		b.WriteString("</FilesMatch>\n")
		b.WriteString("<FilesMatch \"\\.wasm\\.gz$\">\n")
		b.WriteString("  ForceType application/wasm\n")
		b.WriteString("</FilesMatch>\n\n")
	}
	b.WriteString("<FilesMatch \"\\.(data|wasm|js)(\\.br|\\.gz)?$\">\n")
	b.WriteString("  Header set Cache-Control \"public, max-age=31536000, immutable\"\n")
	b.WriteString("</FilesMatch>\n")
	return b.String()
}

func renderReadme(res *scan.Result) string {
	var b strings.Builder
	b.WriteString("# WebGL Fix Pack\n\n")
	b.WriteString("Drop the config file for your host next to your build and redeploy.\n\n")
	b.WriteString("## What this fixes\n\n")
	for _, c := range res.HostingChecks {
		fmt.Fprintf(&b, "- [%s] %s\n", c.Severity, c.Check)
	}
	b.WriteString("\n## Detected in your build\n\n")
	fmt.Fprintf(&b, "- Brotli artifacts: %s\n", yesNo(res.Compression.BrotliPresent))
	fmt.Fprintf(&b, "- Gzip artifacts: %s\n", yesNo(res.Compression.GzipPresent))
	fmt.Fprintf(&b, "- Quick score: %d/100\n", res.QuickScore)
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
