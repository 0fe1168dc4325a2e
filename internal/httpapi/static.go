package httpapi

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

const noClientBuild = "API running. No client build found or index.html missing."

// staticHandler serves the single page app from StaticDir, falling back to
// index.html for client-side routes. Without a build only / answers.
func (h *Handler) staticHandler() http.Handler {
	dir := h.options.StaticDir
	var files fs.FS
	if dir != "" {
		if info, err := os.Stat(path.Join(dir, "index.html")); err == nil && !info.IsDir() {
			files = os.DirFS(dir)
		}
	}
	if files == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(noClientBuild))
		})
	}
	return spaHandler(files)
}

func spaHandler(files fs.FS) http.Handler {
	fileServer := http.FileServerFS(files)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			fileServer.ServeHTTP(w, r)
			return
		}
		info, err := fs.Stat(files, name)
		if err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		http.ServeFileFS(w, r, files, "index.html")
	})
}
