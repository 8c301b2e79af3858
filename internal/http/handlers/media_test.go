package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/http/handlers"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fakeBlobs struct {
	puts []string
	err  error
}

func (f *fakeBlobs) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.puts = append(f.puts, key)
	return "/media/" + key, nil
}

func (f *fakeBlobs) Name() string { return "fake" }

type fakeMediaRepo struct {
	createFn        func(ctx context.Context, m media.Media) (media.Media, error)
	updateAltTextFn func(ctx context.Context, url, alt string) (media.Media, error)
	created         []media.Media
}

func (f *fakeMediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	if f.createFn != nil {
		return f.createFn(ctx, m)
	}
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeMediaRepo) List(ctx context.Context, limit, offset int) ([]media.Media, error) {
	return f.created, nil
}

func (f *fakeMediaRepo) UpdateAltText(ctx context.Context, url, alt string) (media.Media, error) {
	if f.updateAltTextFn != nil {
		return f.updateAltTextFn(ctx, url, alt)
	}
	return media.Media{}, media.ErrNotFound
}

func (f *fakeMediaRepo) SoftDelete(ctx context.Context, id string, at time.Time) (media.Media, error) {
	return media.Media{}, media.ErrNotFound
}

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, files ...upload) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type uploadResponse struct {
	Error    string `json:"error"`
	Uploaded []struct {
		ID           string `json:"id"`
		URL          string `json:"url"`
		OriginalName string `json:"originalName"`
		Kind         string `json:"kind"`
		Variant      string `json:"variant"`
	} `json:"uploaded"`
	Failed []struct {
		OriginalName string `json:"originalName"`
		Error        string `json:"error"`
	} `json:"failed"`
}

func TestUploadMedia_PartialSuccess(t *testing.T) {
	blobs := &fakeBlobs{}
	repo := &fakeMediaRepo{}
	h := handlers.NewMediaHandler(repo, blobs, nil, quietLogger(), 1<<20)
	r := setupRouter(http.MethodPost, "/uploads", h.Upload, admin())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t,
		upload{name: "My Photo.PNG", data: pngHeader},
		upload{name: "notes.png", data: []byte("just some text, not an image")},
	))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Uploaded, 1)
	require.Equal(t, "My Photo.PNG", resp.Uploaded[0].OriginalName)
	require.Equal(t, "image", resp.Uploaded[0].Kind)
	require.Equal(t, media.VariantOriginal, resp.Uploaded[0].Variant)
	require.True(t, strings.HasSuffix(resp.Uploaded[0].URL, "-my-photo.png"), resp.Uploaded[0].URL)

	require.Len(t, resp.Failed, 1)
	require.Equal(t, "notes.png", resp.Failed[0].OriginalName)
	require.Equal(t, "Unsupported file type", resp.Failed[0].Error)

	require.Len(t, blobs.puts, 1)
	require.Len(t, repo.created, 1)
	require.Equal(t, "image/png", repo.created[0].MimeType)
}

func TestUploadMedia_AllFailed(t *testing.T) {
	h := handlers.NewMediaHandler(&fakeMediaRepo{}, &fakeBlobs{err: errors.New("disk full")}, nil, quietLogger(), 1<<20)
	r := setupRouter(http.MethodPost, "/uploads", h.Upload, admin())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, upload{name: "a.png", data: pngHeader}))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Upload failed", resp.Error)
	require.Len(t, resp.Failed, 1)
	require.Equal(t, "Could not store file", resp.Failed[0].Error)
}

func TestUploadMedia_NoFiles(t *testing.T) {
	h := handlers.NewMediaHandler(&fakeMediaRepo{}, &fakeBlobs{}, nil, quietLogger(), 1<<20)
	r := setupRouter(http.MethodPost, "/uploads", h.Upload, admin())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "No files uploaded", decodeError(t, w).Error)
}

func TestUploadMedia_FileTooLarge(t *testing.T) {
	h := handlers.NewMediaHandler(&fakeMediaRepo{}, &fakeBlobs{}, nil, quietLogger(), 8)
	r := setupRouter(http.MethodPost, "/uploads", h.Upload, admin())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, upload{name: "big.png", data: pngHeader}))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "File too large", resp.Failed[0].Error)
}

func TestUpdateAltText(t *testing.T) {
	repo := &fakeMediaRepo{
		updateAltTextFn: func(ctx context.Context, url, alt string) (media.Media, error) {
			if url != "/media/2026/01/a.png" {
				return media.Media{}, media.ErrNotFound
			}
			return media.Media{URL: url, AltText: alt}, nil
		},
	}
	h := handlers.NewMediaHandler(repo, &fakeBlobs{}, nil, quietLogger(), 1<<20)
	r := setupRouter(http.MethodPut, "/uploads", h.UpdateAltText, admin())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "updated", body: `{"url":"/media/2026/01/a.png","altText":"  A cat  "}`, wantStatus: http.StatusOK},
		{name: "unknown_url", body: `{"url":"/media/nope.png","altText":"x"}`, wantStatus: http.StatusNotFound},
		{name: "missing_url", body: `{"altText":"x"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPut, "/uploads", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w := doJSON(r, http.MethodPut, "/uploads", `{"url":"/media/2026/01/a.png","altText":"  A cat  "}`)
	var resp struct {
		OK    bool        `json:"ok"`
		Media media.Media `json:"media"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, "A cat", resp.Media.AltText)
}
