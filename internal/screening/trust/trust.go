// Package trust decides which web hosts may contribute evidence.
//
// A host is trusted when it equals, or is a subdomain of, an allowlisted
// domain. The allowlist doubles as the publisher-name table. A Filter is
// read-only after construction and safe for concurrent use.
package trust

import (
	"net/url"
	"sort"
	"strings"
)

// defaultSources is the curated allowlist: news outlets, government and
// regulatory sites, sanctions bodies and industry standard-setters.
var defaultSources = map[string]string{
	"bbc.com":                  "BBC News",
	"reuters.com":              "Reuters",
	"apnews.com":               "Associated Press",
	"cnn.com":                  "CNN",
	"theguardian.com":          "The Guardian",
	"wsj.com":                  "The Wall Street Journal",
	"ft.com":                   "Financial Times",
	"bloomberg.com":            "Bloomberg",
	"hindustantimes.com":       "Hindustan Times",
	"forbes.com":               "Forbes",
	"treasury.gov":             "U.S. Department of Treasury",
	"fincen.gov":               "Financial Crimes Enforcement Network",
	"sec.gov":                  "Securities and Exchange Commission",
	"fbi.gov":                  "Federal Bureau of Investigation",
	"justice.gov":              "U.S. Department of Justice",
	"state.gov":                "U.S. Department of State",
	"europa.eu":                "European Union",
	"opensanctions.org":        "OpenSanctions",
	"sanctionslist.eu":         "EU Sanctions List",
	"ofac.treasury.gov":        "OFAC Sanctions List",
	"un.org":                   "United Nations",
	"swift.com":                "SWIFT",
	"fatf-gafi.org":            "Financial Action Task Force",
	"wolfsberg-principles.com": "Wolfsberg Group",
}

// Filter classifies URLs against the allowlist.
type Filter struct {
	names map[string]string
}

// Option customizes a Filter.
type Option func(*Filter)

// WithSource adds or renames an allowlisted domain. An empty name falls back
// to the domain itself.
func WithSource(domain, name string) Option {
	return func(f *Filter) {
		d := NormalizeHost(domain)
		if d == "" {
			return
		}
		f.names[d] = strings.TrimSpace(name)
	}
}

// New returns a Filter seeded with the default allowlist.
func New(opts ...Option) *Filter {
	f := &Filter{names: make(map[string]string, len(defaultSources))}
	for d, n := range defaultSources {
		f.names[d] = n
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsTrusted reports whether rawURL's host is allowlisted. Unparseable URLs
// are untrusted.
func (f *Filter) IsTrusted(rawURL string) bool {
	_, ok := f.match(HostOf(rawURL))
	return ok
}

// SourceName maps a domain to its publisher label. Trusted hosts without a
// label, and untrusted hosts, return the normalized domain.
func (f *Filter) SourceName(domain string) string {
	host := NormalizeHost(domain)
	entry, ok := f.match(host)
	if !ok {
		return host
	}
	if name := f.names[entry]; name != "" {
		return name
	}
	return host
}

// Domains lists the allowlist in sorted order.
func (f *Filter) Domains() []string {
	out := make([]string, 0, len(f.names))
	for d := range f.names {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// match walks host and its parent domains, most specific first, so that
// ofac.treasury.gov resolves to its own label rather than treasury.gov's.
func (f *Filter) match(host string) (string, bool) {
	for host != "" {
		if _, ok := f.names[host]; ok {
			return host, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return "", false
		}
		host = host[i+1:]
	}
	return "", false
}

// HostOf extracts and normalizes the host of rawURL. Scheme-less inputs are
// treated as bare hosts.
func HostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return NormalizeHost(u.Hostname())
}

// NormalizeHost lowercases host and strips one leading "www." label and any
// trailing dot.
func NormalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}
