package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"mailpilot/config"
)

// Open and click tracking rewrites outbound HTML so engagement flows back
// through /api/track handlers keyed by Message-Id.

// GenerateTrackingPixelURL builds the open-tracking pixel URL for a message.
func GenerateTrackingPixelURL(baseURL, messageID string) string {
	return fmt.Sprintf("%s/api/track/open/%s/%s", baseURL, url.PathEscape(messageID), trackingToken(messageID))
}

// GenerateClickTrackURL wraps a link so the click is recorded before redirect.
func GenerateClickTrackURL(baseURL, messageID, originalURL string) string {
	return fmt.Sprintf("%s/api/track/click/%s/%s?url=%s",
		baseURL, url.PathEscape(messageID), trackingToken(messageID), url.QueryEscape(originalURL))
}

// VerifyTrackingToken checks that a token was minted for this message.
func VerifyTrackingToken(messageID, token string) bool {
	return hmac.Equal([]byte(trackingToken(messageID)), []byte(token))
}

// InjectTracking appends the open pixel and rewrites links for clicks.
func InjectTracking(htmlContent, baseURL, messageID string) string {
	pixelURL := GenerateTrackingPixelURL(baseURL, messageID)
	trackingPixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)

	return injectClickTracking(htmlContent, baseURL, messageID) + trackingPixel
}

func injectClickTracking(html, baseURL, messageID string) string {
	const startTag = `<a href="`
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], `"`)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		if strings.Contains(originalURL, "/api/track/") {
			offset = endIdx
			continue
		}
		trackedURL := GenerateClickTrackURL(baseURL, messageID, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}

// trackingToken derives a stable token from the message id, so the track
// handler can verify requests without a table lookup.
func trackingToken(messageID string) string {
	mac := hmac.New(sha256.New, []byte(config.AppConfig.JWTSecret))
	mac.Write([]byte(messageID))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))[:20]
}
