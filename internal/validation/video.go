package validation

import (
	"fmt"
	"net/url"
	"regexp"
)

// Recognized video providers. Embed markup is synthesized deterministically
// from the matched provider and extracted identifier at registration time.
var (
	youtubeRegex  = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:youtube|youtu|youtube-nocookie)\.(?:com|be)/(?:watch\?v=|embed/|v/|.+\?v=)?([^&=%?]{11})`)
	facebookRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.)?facebook\.com/.+/(?:videos?|watch)/`)
	driveRegex    = regexp.MustCompile(`^(?:https?://)?(?:www\.)?drive\.google\.com/file/d/([^/]+)`)
)

// YouTubeVideoID extracts the 11-character video identifier, or "" when the
// URL is not a recognized YouTube link.
func YouTubeVideoID(rawURL string) string {
	if m := youtubeRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// DriveFileID extracts the Google Drive file identifier, or "".
func DriveFileID(rawURL string) string {
	if m := driveRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// IsFacebookVideoURL reports whether the URL points at a Facebook video.
func IsFacebookVideoURL(rawURL string) bool {
	return facebookRegex.MatchString(rawURL)
}

// ValidVideoEmbedURL reports whether the URL is well formed and belongs to a
// recognized provider.
func ValidVideoEmbedURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	return YouTubeVideoID(rawURL) != "" ||
		IsFacebookVideoURL(rawURL) ||
		DriveFileID(rawURL) != ""
}

// VideoEmbedHTML synthesizes iframe markup for a recognized provider URL.
// Returns "" for unrecognized URLs.
func VideoEmbedHTML(rawURL string) string {
	if id := YouTubeVideoID(rawURL); id != "" {
		return fmt.Sprintf(
			`<iframe width="560" height="315" src="https://www.youtube.com/embed/%s" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe>`,
			id)
	}
	if IsFacebookVideoURL(rawURL) {
		return fmt.Sprintf(
			`<iframe src="https://www.facebook.com/plugins/video.php?href=%s" width="560" height="315" scrolling="no" frameborder="0" allowfullscreen="true" allow="autoplay; clipboard-write; encrypted-media; picture-in-picture; web-share"></iframe>`,
			url.QueryEscape(rawURL))
	}
	if id := DriveFileID(rawURL); id != "" {
		return fmt.Sprintf(
			`<iframe src="https://drive.google.com/file/d/%s/preview" width="560" height="315" allow="autoplay"></iframe>`,
			id)
	}
	return ""
}
