package platform

import (
	"net/url"
	"strings"
)

// supportedDomains is the fixed allow-list of platforms the download engine
// is asked to handle. Matching is by substring of the host, which also covers
// subdomains like m.youtube.com.
var supportedDomains = []string{
	"youtube.com", "youtu.be", "music.youtube.com",
	"instagram.com", "www.instagram.com",
	"facebook.com", "fb.watch", "www.facebook.com",
	"tiktok.com", "vm.tiktok.com", "www.tiktok.com",
	"twitter.com", "x.com", "www.twitter.com",
	"soundcloud.com", "www.soundcloud.com",
	"vimeo.com", "www.vimeo.com",
	"dailymotion.com", "www.dailymotion.com",
}

// IsSupportedURL reports whether raw points at a supported platform.
// A missing scheme is normalized to https; any parse failure means false.
func IsSupportedURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, domain := range supportedDomains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}
