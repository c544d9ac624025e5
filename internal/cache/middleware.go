package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// cachedDocument is a stored response
type cachedDocument struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
	ETag        string `json:"etag"`
}

// Middleware serves GET responses from c and stores successful ones for ttl.
// A nil cache disables it.
func Middleware(c Cache, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheControl := fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))

	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := DocumentKey(r)

			data, err := c.Get(ctx, key)
			if err == nil {
				var doc cachedDocument
				if err := json.Unmarshal(data, &doc); err == nil {
					w.Header().Set("X-Cache", "HIT")
					w.Header().Set("Cache-Control", cacheControl)
					if notModified(w, r, doc.ETag) {
						return
					}
					w.Header().Set("Content-Type", doc.ContentType)
					w.Header().Set("ETag", doc.ETag)
					w.WriteHeader(doc.StatusCode)
					w.Write(doc.Body)
					return
				}
				logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
			} else if !IsMiss(err) {
				logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
			}

			rec := &recorder{header: make(http.Header), statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			for k, v := range rec.header {
				w.Header()[k] = v
			}
			w.Header().Set("X-Cache", "MISS")

			if rec.statusCode != http.StatusOK {
				w.WriteHeader(rec.statusCode)
				w.Write(rec.body.Bytes())
				return
			}

			doc := cachedDocument{
				StatusCode:  rec.statusCode,
				ContentType: rec.header.Get("Content-Type"),
				Body:        rec.body.Bytes(),
				ETag:        ETag(rec.body.Bytes()),
			}
			if data, err := json.Marshal(doc); err == nil {
				if err := c.Set(ctx, key, data, ttl); err != nil {
					logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
				}
			}

			w.Header().Set("Cache-Control", cacheControl)
			if notModified(w, r, doc.ETag) {
				return
			}
			w.Header().Set("ETag", doc.ETag)
			w.WriteHeader(doc.StatusCode)
			w.Write(doc.Body)
		})
	}
}

// recorder buffers a response so it can be stored before it is sent
type recorder struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = statusCode
	r.wroteHeader = true
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(b)
}
