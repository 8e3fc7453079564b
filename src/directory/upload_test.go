package directory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uploads/images" {
			t.Errorf("path = %q, want /uploads/images", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer cred" {
			t.Errorf("Authorization = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "icon.png" || string(data) != "png-bytes" {
			t.Errorf("upload = %q %q", header.Filename, data)
		}
		_, _ = w.Write([]byte(`{"url":"https://img.example.edu/ck1.png"}`))
	}))
	t.Cleanup(srv.Close)

	url, err := NewClient(srv.URL+"/graphql").UploadImage(context.Background(), "/tmp/icon.png", []byte("png-bytes"), "cred")
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if url != "https://img.example.edu/ck1.png" {
		t.Fatalf("url = %q", url)
	}
}

func TestClientUploadImageErrors(t *testing.T) {
	t.Run("rejected upload carries the server message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":[{"message":"File must be an image","extensions":{"code":"BAD_USER_INPUT"}}]}`))
		}))
		t.Cleanup(srv.Close)
		_, err := NewClient(srv.URL+"/graphql").UploadImage(context.Background(), "notes.txt", []byte("x"), "cred")
		if CodeOf(err) != CodeBadUserInput || err.Error() != "File must be an image" {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("gateway failure is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)
		_, err := NewClient(srv.URL, WithUploadURL(srv.URL+"/img")).UploadImage(context.Background(), "a.png", []byte("x"), "")
		if !IsTransient(err) {
			t.Fatalf("err = %v, want transient", err)
		}
	})
}
