package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"campus-community/src/auth"
	"campus-community/src/directory"
	"campus-community/src/lib"
	"campus-community/src/services"
	"campus-community/src/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000IHDR")

func TestUploadImageRoundTrip(t *testing.T) {
	images, err := storage.NewDiskImages(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	if err != nil {
		t.Fatalf("NewDiskImages: %v", err)
	}
	metrics := lib.NewMetrics()
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Backend:   &fakeBackend{},
		Verifier:  auth.NewVerifier(testSecret),
		Metrics:   metrics,
		Logger:    lib.NewLoggerTo(io.Discard, "ERROR"),
		Images:    services.NewImageService(images, nil, metrics),
		UploadDir: images.Dir(),
	}))
	t.Cleanup(srv.Close)

	cred, _ := auth.NewIssuer(testSecret, time.Hour).Issue("u1")
	client := directory.NewClient(srv.URL + "/graphql")
	ctx := context.Background()

	url, err := client.UploadImage(ctx, "icon.png", pngBytes, cred)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") {
		t.Fatalf("url = %q, want it under /uploads/", url)
	}
	resp, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	served, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(served) != string(pngBytes) {
		t.Fatalf("served %d %q", resp.StatusCode, served)
	}

	if _, err := client.UploadImage(ctx, "icon.png", pngBytes, ""); !directory.IsUnauthenticated(err) {
		t.Fatalf("anonymous upload err = %v, want UNAUTHENTICATED", err)
	}
	if _, err := client.UploadImage(ctx, "notes.txt", []byte("plain words"), cred); directory.CodeOf(err) != directory.CodeBadUserInput {
		t.Fatalf("text upload err = %v, want BAD_USER_INPUT", err)
	}
}

func TestUploadRouteRequiresFileField(t *testing.T) {
	routes := UploadRoutes{Uploader: services.NewImageService(nil, nil, nil), Logger: lib.NewLoggerTo(io.Discard, "ERROR")}
	req := httptest.NewRequest(http.MethodPost, "/uploads/images", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	routes.handleUpload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
