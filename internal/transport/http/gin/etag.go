package httpgin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// cachePolicy is the Cache-Control value sent with a conditional response.
type cachePolicy string

const (
	// cacheCatalog suits showtime details, which change only by admin action.
	cacheCatalog cachePolicy = "public, max-age=60"
	// cacheRevalidate forces a conditional request every time. Seat maps
	// change with every hold.
	cacheRevalidate cachePolicy = "no-cache"
)

// writeConditionalJSON writes v with a weak ETag derived from its encoding
// and answers 304 when the client already holds that representation.
func writeConditionalJSON(c *gin.Context, v any, policy cachePolicy) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	tag := weakETag(b)
	c.Header("ETag", tag)
	c.Header("Cache-Control", string(policy))

	if etagMatches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

func weakETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}

// etagMatches applies the weak comparison used for If-None-Match: the
// header may list several tags or be "*".
func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(tag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
