// Package site serves the embedded landing page with a live leaderboard view.
package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the landing page at / and its assets under /assets/.
func Register(r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	files := http.FileServer(FS())
	r.Get("/", files.ServeHTTP)
	r.Get("/assets/*", files.ServeHTTP)
}
