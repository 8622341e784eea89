package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/config"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
)

func newTestServer(maxBytes int64) *Server {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{HTTPPort: 0, MaxUploadBytes: maxBytes}
	proc := pipeline.New(pipeline.DefaultParams(), zerolog.Nop())
	s := NewServer(cfg, proc, zerolog.Nop(), "test")
	gin.SetMode(gin.TestMode)
	return s
}

func roadImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 720))
	for y := 0; y < 720; y++ {
		for x := 0; x < 640; x++ {
			c := color.RGBA{100, 100, 100, 255}
			switch {
			case distToSegment(x, y, 130, 710, 300, 400) <= 4:
				c = color.RGBA{255, 200, 0, 255}
			case distToSegment(x, y, 510, 710, 340, 400) <= 4:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func distToSegment(px, py, x1, y1, x2, y2 int) float64 {
	dx, dy := float64(x2-x1), float64(y2-y1)
	u := (float64(px-x1)*dx + float64(py-y1)*dy) / (dx*dx + dy*dy)
	u = math.Max(0, math.Min(1, u))
	return math.Hypot(float64(px)-(float64(x1)+u*dx), float64(py)-(float64(y1)+u*dy))
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(0)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != "healthy" || resp.Version != "test" {
		t.Errorf("got %+v", resp)
	}
}

func TestUpload_PNG(t *testing.T) {
	s := newTestServer(0)
	src := roadImage()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, "file", "road.png", pngBytes(t, src)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="output.png"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	out, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("response is not a png: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}

	changed := 0
	for y := 0; y < 720; y++ {
		for x := 0; x < 640; x++ {
			r1, g1, b1, _ := out.At(x, y).RGBA()
			r2, g2, b2, _ := src.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("expected lane lines drawn over the upload")
	}
}

func TestUpload_JPEG(t *testing.T) {
	s := newTestServer(0)
	data := pngBytes(t, image.NewRGBA(image.Rect(0, 0, 32, 24)))

	// Extension decides the output format; content is sniffed on decode.
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, "file", "frame.JPG", data))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="output.jpg"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if _, format, err := image.Decode(w.Body); err != nil || format != "jpeg" {
		t.Errorf("Decode() = %q, %v", format, err)
	}
}

func TestUpload_GIF(t *testing.T) {
	s := newTestServer(0)

	g := &gif.GIF{}
	for i := 0; i < 2; i++ {
		g.Image = append(g.Image, image.NewPaletted(image.Rect(0, 0, 40, 30), palette.Plan9))
		g.Delay = append(g.Delay, 5)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("failed to encode gif: %v", err)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, uploadRequest(t, "file", "clip.gif", buf.Bytes()))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Content-Type = %q, want image/gif", ct)
	}
	out, err := gif.DecodeAll(w.Body)
	if err != nil {
		t.Fatalf("response is not a gif: %v", err)
	}
	if len(out.Image) != 2 {
		t.Errorf("frames = %d, want 2", len(out.Image))
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		field    string
		filename string
		data     []byte
		want     int
	}{
		{"missing file", 0, "other", "road.png", []byte("x"), http.StatusBadRequest},
		{"unsupported extension", 0, "file", "road.bmp", []byte("x"), http.StatusUnsupportedMediaType},
		{"no extension", 0, "file", "road", []byte("x"), http.StatusUnsupportedMediaType},
		{"undecodable image", 0, "file", "road.png", []byte("not an image"), http.StatusUnprocessableEntity},
		{"undecodable gif", 0, "file", "clip.gif", []byte("not a gif"), http.StatusUnprocessableEntity},
		{"too large", 64, "file", "road.png", bytes.Repeat([]byte("a"), 4096), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.maxBytes)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, uploadRequest(t, tt.field, tt.filename, tt.data))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Errorf("expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestUpload_TooLargeWithoutContentLength(t *testing.T) {
	s := newTestServer(512)
	req := uploadRequest(t, "file", "road.png", bytes.Repeat([]byte("a"), 4096))
	req.ContentLength = -1

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 (body %s)", w.Code, w.Body.String())
	}
}

func TestUpload_WrongMethod(t *testing.T) {
	s := newTestServer(0)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/upload", nil))

	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 404 or 405", w.Code)
	}
}
