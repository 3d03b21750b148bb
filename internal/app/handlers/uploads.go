package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iwanyu/marketplace/internal/access"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/filestore"
	"github.com/iwanyu/marketplace/internal/service"
)

// FileStore загрузка, просмотр и отдача файлов по бакетам
type FileStore interface {
	Save(ctx context.Context, bucket string, ownerID int64, r io.Reader) (*filestore.File, error)
	List(ctx context.Context, bucket string, ownerID int64) ([]*filestore.File, error)
	Open(ctx context.Context, bucket, key string) (io.ReadSeekCloser, time.Time, error)
	MaxBytes() int64
}

// multipartMemory часть формы, которая держится в памяти, остальное уходит во временные файлы
const multipartMemory = 1 << 20

// UploadHandler POST /api/uploads/{bucket}, поле формы "file"
func UploadHandler(log *slog.Logger, files FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.UploadHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, files.MaxBytes()+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				handleServiceError(log, w, filestore.ErrTooLarge)
				return
			}
			writeError(log, w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, "file field is required")
			return
		}
		defer f.Close()

		saved, err := files.Save(r.Context(), chi.URLParam(r, "bucket"), p.Profile.ID, f)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, saved)
	}
}

// ListUploadsHandler файлы текущего пользователя в бакете
func ListUploadsHandler(log *slog.Logger, files FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ListUploadsHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		list, err := files.List(r.Context(), chi.URLParam(r, "bucket"), p.Profile.ID)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

// FileHandler GET /files/{bucket}/*. Закрытые бакеты отдаются владельцу файла и администраторам
func FileHandler(log *slog.Logger, files FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.FileHandler"))

		bucket := chi.URLParam(r, "bucket")
		key := chi.URLParam(r, "*")

		if filestore.Private(bucket) {
			ownerID, err := filestore.OwnerOf(key)
			if err != nil {
				handleServiceError(log, w, err)
				return
			}
			p := access.PrincipalFromContext(r.Context())
			if p == nil || p.Profile == nil {
				writeError(log, w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if p.Role != models.RoleAdmin && p.Profile.ID != ownerID {
				handleServiceError(log, w, service.ErrForbidden)
				return
			}
		}

		f, modTime, err := files.Open(r.Context(), bucket, key)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		defer f.Close()

		if filestore.Private(bucket) {
			w.Header().Set("Cache-Control", "private, no-store")
		}
		http.ServeContent(w, r, path.Base(key), modTime, f)
	}
}
