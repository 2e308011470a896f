package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/invitera/invitera/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// UploadResponse is returned from the upload endpoint. NaturalWidth and
// NaturalHeight are the decoded pixel dimensions the editor's cover/contain
// fitting runs on, so clients never have to measure the image themselves.
type UploadResponse struct {
	ID            string `json:"id"`
	Src           string `json:"src"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
	Type          string `json:"type"`
	Name          string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir string // directory to store asset files
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		http.Error(w, "only PNG and JPEG images are supported", http.StatusBadRequest)
		return
	}

	// Decode for dimensions; re-encode as PNG so stored files are uniform.
	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	bounds := img.Bounds()

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{
		ID:            assetID,
		Src:           fmt.Sprintf("/assets/%s", filename),
		NaturalWidth:  bounds.Dx(),
		NaturalHeight: bounds.Dy(),
		Type:          "png",
		Name:          header.Filename,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an asset file from disk (for cleanup).
func (h *Handler) Delete(assetID string) error {
	path := filepath.Join(h.dir, assetID+".png")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}
