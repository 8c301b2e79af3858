package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/geocoder89/sitecms/internal/blob"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/store"
)

const (
	uploadField    = "files"
	idAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxNameLength  = 80
	uploadDeadline = 60 * time.Second
)

// AllowedUploadTypes lists the MIME types accepted after sniffing.
var AllowedUploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/avif",
	"image/svg+xml",
	"video/mp4",
	"video/webm",
	"audio/mpeg",
	"audio/wav",
	"application/pdf",
}

type MediaHandler struct {
	repo     store.MediaRepository
	blobs    blob.Store
	prom     *observability.Prom
	log      *slog.Logger
	maxBytes int64
	now      func() time.Time
}

func NewMediaHandler(repo store.MediaRepository, blobs blob.Store, prom *observability.Prom, log *slog.Logger, maxBytes int64) *MediaHandler {
	return &MediaHandler{
		repo:     repo,
		blobs:    blobs,
		prom:     prom,
		log:      log,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type uploaded struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
	Kind         string `json:"kind"`
	Variant      string `json:"variant"`
	Size         int64  `json:"size"`
}

type uploadFailure struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
}

// Upload stores every file of the "files" field independently. One bad
// file never hides the others: each is reported as uploaded or failed.
func (h *MediaHandler) Upload(ctx *gin.Context, _ []string) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "Upload too large")
			return nil
		}
		RespondBadRequest(ctx, "No files uploaded")
		return nil
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		RespondBadRequest(ctx, "No files uploaded")
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), uploadDeadline)
	defer cancel()

	ok := make([]uploaded, 0, len(files))
	failed := make([]uploadFailure, 0)

	for _, fh := range files {
		item, err := h.store(cctx, fh)
		if err != nil {
			h.log.WarnContext(cctx, "upload failed", "file", fh.Filename, "err", err)
			failed = append(failed, uploadFailure{OriginalName: fh.Filename, Error: uploadErrorMessage(err)})
			continue
		}
		ok = append(ok, item)
	}

	body := gin.H{"uploaded": ok, "failed": failed}

	if len(ok) == 0 {
		body["error"] = "Upload failed"
		ctx.JSON(http.StatusInternalServerError, body)
		return nil
	}

	ctx.JSON(http.StatusOK, body)
	return nil
}

var (
	errUnsupportedType = errors.New("unsupported file type")
	errTooLarge        = errors.New("file too large")
	errEmptyFile       = errors.New("empty file")
)

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, errUnsupportedType):
		return "Unsupported file type"
	case errors.Is(err, errTooLarge):
		return "File too large"
	case errors.Is(err, errEmptyFile):
		return "File is empty"
	default:
		return "Could not store file"
	}
}

func (h *MediaHandler) store(ctx context.Context, fh *multipart.FileHeader) (item uploaded, err error) {
	kind := "file"
	defer func() {
		if h.prom != nil {
			h.prom.ObserveUpload(kind, fh.Size, err)
		}
	}()

	if fh.Size == 0 {
		return uploaded{}, errEmptyFile
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return uploaded{}, errTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return uploaded{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return uploaded{}, fmt.Errorf("sniff upload: %w", err)
	}
	if !mimetype.EqualsAny(mt.String(), AllowedUploadTypes...) {
		return uploaded{}, fmt.Errorf("%w: %s", errUnsupportedType, mt.String())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return uploaded{}, fmt.Errorf("rewind upload: %w", err)
	}

	mimeType, _, _ := strings.Cut(mt.String(), ";")
	kind = media.KindOf(mimeType)

	now := h.now()
	filename, err := uploadFilename(now, fh.Filename, mt.Extension())
	if err != nil {
		return uploaded{}, err
	}
	key := fmt.Sprintf("%04d/%02d/%s", now.Year(), now.Month(), filename)

	url, err := h.blobs.Put(ctx, key, mimeType, f, fh.Size)
	if err != nil {
		return uploaded{}, err
	}

	// blob and row are not written atomically; a failed insert leaves an
	// unreferenced blob behind
	m, err := h.repo.Create(ctx, media.Media{
		ID:           uuid.NewString(),
		URL:          url,
		Key:          key,
		Filename:     filename,
		OriginalName: fh.Filename,
		MimeType:     mimeType,
		Kind:         kind,
		Variant:      media.VariantOriginal,
		SizeBytes:    fh.Size,
		CreatedAt:    now,
	})
	if err != nil {
		return uploaded{}, fmt.Errorf("record upload: %w", err)
	}

	return uploaded{
		ID:           m.ID,
		URL:          m.URL,
		OriginalName: m.OriginalName,
		Kind:         m.Kind,
		Variant:      m.Variant,
		Size:         m.SizeBytes,
	}, nil
}

// uploadFilename is {unixMillis}-{random id}-{slugified name}{ext}.
func uploadFilename(now time.Time, original, sniffedExt string) (string, error) {
	ext := sniffedExt
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(original))
	}

	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	name := slug.Make(base)
	if len(name) > maxNameLength {
		name = strings.Trim(name[:maxNameLength], "-")
	}
	if name == "" {
		name = "file"
	}

	id, err := gonanoid.Generate(idAlphabet, 10)
	if err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}

	return fmt.Sprintf("%d-%s-%s%s", now.UnixMilli(), id, name, ext), nil
}

func (h *MediaHandler) List(ctx *gin.Context, _ []string) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(ctx, "offset")
	if err != nil {
		return err
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, limit, offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []media.Media{}
	}

	ctx.JSON(http.StatusOK, items)
	return nil
}

func (h *MediaHandler) UpdateAltText(ctx *gin.Context, _ []string) error {
	var req media.UpdateAltTextRequest
	if !BindJSON(ctx, &req) {
		return nil
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m, err := h.repo.UpdateAltText(cctx, req.URL, strings.TrimSpace(req.AltText))
	if err != nil {
		return err
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "media": m})
	return nil
}

func (h *MediaHandler) Delete(ctx *gin.Context, args []string) error {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.repo.SoftDelete(cctx, args[0], h.now()); err != nil {
		return err
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
	return nil
}
