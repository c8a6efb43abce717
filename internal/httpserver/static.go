package httpserver

import (
	"net/http"
	"path"
	"path/filepath"
)

// spaHandler serves files from dir and falls back to dir/index.html for
// any GET path that is not a file, so client-side routes survive reloads.
// Other methods get the JSON 404.
func spaHandler(dir string) http.HandlerFunc {
	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			notFoundJSON(w, r)
			return
		}
		// Let the file server pick the type from the extension.
		w.Header().Del("Content-Type")

		if f, err := root.Open(path.Clean("/" + r.URL.Path)); err == nil {
			st, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !st.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, index)
	}
}
