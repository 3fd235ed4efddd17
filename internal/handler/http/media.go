package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// MediaFileSource looks up stored media by object key.
type MediaFileSource interface {
	Get(key string) ([]byte, bool)
}

func serveMedia(src MediaFileSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := src.Get(chi.URLParam(r, "*"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
	}
}
