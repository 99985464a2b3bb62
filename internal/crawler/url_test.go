package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Dev.To/Path", "https://dev.to/Path"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"empty path becomes root", "https://example.com", "https://example.com/"},
		{"trailing slash insignificant", "https://example.com/r/anime/", "https://example.com/r/anime"},
		{"root keeps slash", "https://example.com/", "https://example.com/"},
		{"strips default http port", "http://example.com:80/x", "http://example.com/x"},
		{"strips default https port", "https://example.com:443/x", "https://example.com/x"},
		{"keeps other ports", "https://example.com:8443/x", "https://example.com:8443/x"},
		{"keeps query", "https://example.com/search?q=go&page=2", "https://example.com/search?q=go&page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	t.Parallel()

	a, err := NormalizeURL("https://Example.com/docs/")
	require.NoError(t, err)
	b, err := NormalizeURL("https://example.com/docs#intro")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := NormalizeURL("https://example.com/docs?page=1")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestNormalizeURLRejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/relative/path")
	require.Error(t, err)

	_, err = NormalizeURL("http://%zz")
	require.Error(t, err)
}

func TestIsCrawlable(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://dev.to":             true,
		"http://example.com/a?b=c":   true,
		"HTTPS://EXAMPLE.COM":        true,
		"/about":                     false,
		"#top":                       false,
		"mailto:someone@example.com": false,
		"javascript:void(0)":         false,
		"ftp://example.com/file":     false,
		"https://":                   false,
		"":                           false,
	}
	for raw, want := range cases {
		require.Equalf(t, want, IsCrawlable(raw), "IsCrawlable(%q)", raw)
	}
}
