package webmonitor

import (
	"net/http"
	"path/filepath"
)

type assetHandler struct {
	dir string
}

func newAssetHandler(dir string) *assetHandler {
	return &assetHandler{dir: dir}
}

func (h *assetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.URL.Path)
	http.ServeFile(w, r, filepath.Join(h.dir, filename))
}
