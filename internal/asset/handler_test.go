package asset

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_ReturnsNaturalSize(t *testing.T) {
	h := NewHandler(t.TempDir())

	req := uploadRequest(t, "file", "bg.png", "image/png", makePNG(t, 640, 480))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.NaturalWidth != 640 || resp.NaturalHeight != 480 {
		t.Errorf("natural size = %dx%d, want 640x480", resp.NaturalWidth, resp.NaturalHeight)
	}
	if !strings.HasPrefix(resp.ID, "asset_") {
		t.Errorf("asset id = %q, want asset_ prefix", resp.ID)
	}
	if resp.Src != "/assets/"+resp.ID+".png" {
		t.Errorf("src = %q", resp.Src)
	}
}

func TestUpload_RejectsNonImages(t *testing.T) {
	h := NewHandler(t.TempDir())

	req := uploadRequest(t, "file", "notes.txt", "text/plain", []byte("hello"))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_RejectsCorruptImage(t *testing.T) {
	h := NewHandler(t.TempDir())

	req := uploadRequest(t, "file", "bg.png", "image/png", []byte("not a png"))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	h := NewHandler(t.TempDir())

	req := uploadRequest(t, "wrong", "bg.png", "image/png", makePNG(t, 8, 8))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
