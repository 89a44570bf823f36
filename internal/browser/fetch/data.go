// internal/browser/fetch/data.go
package fetch

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

var errMalformedDataURL = errors.New("malformed data URL")

// decodeDataURL decodes an RFC 2397 data URL. A missing media type is
// text/plain;charset=US-ASCII.
func decodeDataURL(u *url.URL) (*Response, error) {
	raw := u.Opaque
	if raw == "" {
		raw = strings.TrimPrefix(u.String(), "data:")
	}
	d, err := dataurl.DecodeString("data:" + raw)
	if err != nil {
		return nil, &Error{URL: "data:", Err: errors.Join(errMalformedDataURL, err)}
	}
	return &Response{URL: u, Body: d.Data, ContentType: d.MediaType.String()}, nil
}

var fontTypes = map[string]string{
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".css":   "text/css; charset=utf-8",
}

// contentTypeByExtension guesses a local file's type, falling back to
// content sniffing.
func contentTypeByExtension(path string, body []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := fontTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}
