package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 255), uint8(y % 255), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLooksLikeImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/pic.jpg", true},
		{"https://cdn.example.com/pic.PNG?v=2", true},
		{"https://img.youtube.com/vi/abc/maxresdefault.jpg", true},
		{"https://www.instagram.com/p/C1/media/?size=l", true},
		{"https://example.com/page.html", false},
		{"ftp://example.com/pic.jpg", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := looksLikeImageURL(tt.url); got != tt.want {
			t.Errorf("looksLikeImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDownload_SavesValidImage(t *testing.T) {
	payload := pngBytes(t, 200, 200)
	for size := 600; len(payload) < MinImageBytes; size *= 2 {
		// Pad by enlarging until over the floor.
		payload = pngBytes(t, size, size)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	root := t.TempDir()
	d := NewImageDownloader(DownloaderConfig{ImagesRoot: root, Delay: time.Millisecond})

	got := d.Download(context.Background(), []ImageRequest{
		{ImageURL: srv.URL + "/foto.png", Title: "Telemedicina: o futuro!", Platform: "instagram"},
	}, "sess1")

	if len(got) != 1 {
		t.Fatalf("downloads = %d, want 1", len(got))
	}
	img := got[0]
	if img.FileSizeBytes < MinImageBytes {
		t.Errorf("FileSizeBytes = %d, want >= %d", img.FileSizeBytes, MinImageBytes)
	}
	wantPath := filepath.Join(root, "sess1", "001_telemedicina_o_futuro.png")
	if img.LocalPath != wantPath {
		t.Errorf("LocalPath = %q, want %q", img.LocalPath, wantPath)
	}
	if _, err := os.Stat(img.LocalPath); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestDownload_RejectsSmallAndNonImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tiny.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("tiny"))
	})
	mux.HandleFunc("/fake.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(bytes.Repeat([]byte("x"), MinImageBytes*2))
	})
	mux.HandleFunc("/lying.jpg", func(w http.ResponseWriter, r *http.Request) {
		// Image content type but not decodable as an image.
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(bytes.Repeat([]byte("x"), MinImageBytes*2))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewImageDownloader(DownloaderConfig{ImagesRoot: t.TempDir(), Delay: time.Millisecond})
	got := d.Download(context.Background(), []ImageRequest{
		{ImageURL: srv.URL + "/tiny.png", Title: "a"},
		{ImageURL: srv.URL + "/fake.jpg", Title: "b"},
		{ImageURL: srv.URL + "/lying.jpg", Title: "c"},
	}, "sess2")

	if len(got) != 0 {
		t.Errorf("downloads = %d, want 0 (all rejected)", len(got))
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Telemedicina: o futuro!", "telemedicina_o_futuro"},
		{"", "image"},
		{"___", "image"},
		{"ALREADY_safe-name", "already_safe-name"},
	}
	for _, tt := range tests {
		if got := SafeFilename(tt.in); got != tt.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnnotateBadge(t *testing.T) {
	shot := pngBytes(t, 400, 300)
	out, err := AnnotateBadge(shot, 8.7, "VIRAL")
	if err != nil {
		t.Fatalf("AnnotateBadge() error = %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("annotated output does not decode: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("annotated dimensions changed: %v", img.Bounds())
	}
	if bytes.Equal(shot, out) {
		t.Error("annotation did not change the image")
	}
}

func TestAnnotateBadge_UnknownCategory(t *testing.T) {
	if _, err := AnnotateBadge(pngBytes(t, 100, 100), 1.0, "WHATEVER"); err != nil {
		t.Errorf("unknown category should fall back, got error %v", err)
	}
}

func TestCapture_EmptyTargets(t *testing.T) {
	s := NewScreenshotter(ScreenshotterConfig{SessionsRoot: t.TempDir()})
	if got := s.Capture(context.Background(), nil, "s", "", "p"); got != nil {
		t.Errorf("Capture(nil) = %v, want nil", got)
	}
}
