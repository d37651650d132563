package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the compression middleware.
type BrotliConfig struct {
	Quality int
	// MinLength is the smallest body worth compressing.
	MinLength int
	// SkipTypes lists content types that are already compressed.
	SkipTypes []string
}

// DefaultBrotliConfig compresses JSON, HTML and SVG. PNG charts are
// deflate-compressed already and pass through.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
	SkipTypes: []string{"image/png", "image/jpeg", "image/gif", "image/webp"},
}

// Brotli compresses responses for clients that accept br.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isStreaming(c.Request) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, cfg: &cfg}
		c.Writer = bw
		defer bw.finish()
		c.Next()
	}
}

// brotliWriter holds the body back until it either reaches MinLength or the
// handler returns, then commits to compressed or plain output.
type brotliWriter struct {
	gin.ResponseWriter
	cfg  *BrotliConfig
	buf  []byte
	br   *brotli.Writer
	mode writeMode
}

type writeMode int

const (
	modePending writeMode = iota
	modePlain
	modeCompressed
)

func (bw *brotliWriter) Write(data []byte) (int, error) {
	switch bw.mode {
	case modePlain:
		return bw.ResponseWriter.Write(data)
	case modeCompressed:
		return bw.br.Write(data)
	}

	if bw.skipType() {
		bw.mode = modePlain
		return bw.ResponseWriter.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.cfg.MinLength {
		return len(data), nil
	}

	bw.startCompression()
	if _, err := bw.br.Write(bw.buf); err != nil {
		return 0, err
	}
	bw.buf = nil
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush commits pending bytes so streamed responses reach the client.
func (bw *brotliWriter) Flush() {
	switch bw.mode {
	case modeCompressed:
		_ = bw.br.Flush()
	case modePending:
		bw.mode = modePlain
		bw.drainPlain()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) startCompression() {
	h := bw.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	bw.br = brotli.NewWriterLevel(bw.ResponseWriter, bw.cfg.Quality)
	bw.mode = modeCompressed
}

func (bw *brotliWriter) drainPlain() {
	if len(bw.buf) > 0 {
		_, _ = bw.ResponseWriter.Write(bw.buf)
		bw.buf = nil
	}
}

// finish runs after the handler: short bodies go out uncompressed.
func (bw *brotliWriter) finish() {
	switch bw.mode {
	case modeCompressed:
		_ = bw.br.Close()
	case modePending:
		bw.drainPlain()
	}
}

func (bw *brotliWriter) skipType() bool {
	ct := bw.ResponseWriter.Header().Get("Content-Type")
	for _, t := range bw.cfg.SkipTypes {
		if strings.HasPrefix(ct, t) {
			return true
		}
	}
	return false
}

// isStreaming reports protocols that cannot go through a buffering writer.
// The interactive session upgrades to a WebSocket.
func isStreaming(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
