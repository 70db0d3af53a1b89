package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumchat/vellum-go/config"
)

func testAuth() (string, string) { return "u1", "tok1" }

func newUploader(serverURL string, progress ProgressFunc) *HTTPUploader {
	return NewHTTPUploader(config.UploadConfig{
		BaseURL: serverURL + "/upload",
		Timeout: 5 * time.Second,
	}, testAuth, progress)
}

func TestUploadFile(t *testing.T) {
	var gotPath, gotUserID, gotToken, gotName string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserID = r.Header.Get("X-User-ID")
		gotToken = r.Header.Get("X-Auth-Token")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotName = header.Filename
		gotBody, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"file":{"url":"/files/report.pdf","name":"report.pdf","type":"application/pdf","size":3}}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var fractions []float64
	u := newUploader(srv.URL, func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	})

	att, err := u.Upload(context.Background(), []byte("pdf"), "application/pdf", "report.pdf", EndpointFile)
	require.NoError(t, err)

	assert.Equal(t, "/upload/file", gotPath)
	assert.Equal(t, "u1", gotUserID)
	assert.Equal(t, "tok1", gotToken)
	assert.Equal(t, "report.pdf", gotName)
	assert.Equal(t, []byte("pdf"), gotBody)

	assert.Equal(t, "/files/report.pdf", att.URL)
	assert.Equal(t, "application/pdf", att.Type)
	assert.EqualValues(t, 3, att.Size)

	mu.Lock()
	assert.Equal(t, []float64{0.1, 1.0}, fractions)
	mu.Unlock()
}

func TestUploadAvatarResponseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/avatar", r.URL.Path)
		w.Write([]byte(`{"success":true,"url":"/avatars/u1.png"}`))
	}))
	defer srv.Close()

	u := newUploader(srv.URL, nil)
	att, err := u.Upload(context.Background(), []byte("png"), "image/png", "avatar", EndpointAvatar)
	require.NoError(t, err)

	assert.Equal(t, "/avatars/u1.png", att.URL)
	assert.Equal(t, "avatar", att.Name)
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	u := newUploader(srv.URL, nil)
	att, err := u.Upload(context.Background(), []byte("x"), "text/plain", "x.txt", EndpointFile)
	assert.Error(t, err)
	assert.Nil(t, att)
}

func TestUploadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	u := newUploader(srv.URL, nil)
	_, err := u.Upload(context.Background(), []byte("x"), "text/plain", "x.txt", EndpointFile)
	assert.ErrorContains(t, err, "500")
}

func TestUploadMissingFileDescriptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"url":"/files/orphan"}`))
	}))
	defer srv.Close()

	u := newUploader(srv.URL, nil)
	_, err := u.Upload(context.Background(), []byte("x"), "text/plain", "x.txt", EndpointFile)
	assert.ErrorContains(t, err, "missing file descriptor")
}

func TestUploadServerDown(t *testing.T) {
	u := newUploader("http://127.0.0.1:1", nil)
	_, err := u.Upload(context.Background(), []byte("x"), "text/plain", "x.txt", EndpointFile)
	assert.Error(t, err)
}
