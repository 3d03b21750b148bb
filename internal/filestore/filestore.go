package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/iwanyu/marketplace/internal/lib/logger"
)

const URLPrefix = "/files/"

var (
	ErrUnknownBucket   = errors.New("unknown bucket")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileNotFound    = errors.New("file not found")
)

// Buckets допустимые бакеты и разрешённые в них типы
var Buckets = map[string][]string{
	"products":         {"image/jpeg", "image/png", "image/webp", "image/gif"},
	"avatars":          {"image/jpeg", "image/png", "image/webp"},
	"vendor-documents": {"application/pdf", "image/jpeg", "image/png"},
}

// бакеты, которые отдаются только владельцу и администраторам
var privateBuckets = map[string]bool{
	"vendor-documents": true,
}

// Private true, если файлы бакета закрыты от анонимов
func Private(bucket string) bool {
	return privateBuckets[bucket]
}

// OwnerOf разбирает ключ "<ownerID>/<name>" и возвращает владельца
func OwnerOf(key string) (int64, error) {
	owner, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || strings.Contains(name, "/") || !fs.ValidPath(key) {
		return 0, ErrFileNotFound
	}
	id, err := strconv.ParseInt(owner, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrFileNotFound
	}
	return id, nil
}

// File загруженный файл; Key вида "<ownerID>/<uuid><ext>"
type File struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store файловое хранилище на диске: бакет = каталог, внутри каталоги владельцев
type Store struct {
	log      *slog.Logger
	dir      string
	maxBytes int64
}

func New(log *slog.Logger, dir string, maxBytes int64) (*Store, error) {
	const op = "filestore.New"

	for bucket := range Buckets {
		if err := os.MkdirAll(filepath.Join(dir, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &Store{log: log, dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes предельный размер одного файла
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

func allowed(bucket, contentType string) bool {
	for _, t := range Buckets[bucket] {
		if t == contentType {
			return true
		}
	}
	return false
}

// Save читает не больше maxBytes, определяет тип по содержимому
// (заявленный клиентом Content-Type не учитывается) и сохраняет под случайным именем
func (s *Store) Save(ctx context.Context, bucket string, ownerID int64, r io.Reader) (*File, error) {
	const op = "filestore.Store.Save"
	log := s.log.With(slog.String("op", op), slog.String("bucket", bucket), slog.Int64("ownerID", ownerID))

	if _, ok := Buckets[bucket]; !ok {
		return nil, ErrUnknownBucket
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", op, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	if !allowed(bucket, contentType) {
		log.Warn("rejected upload", slog.String("contentType", contentType))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	owner := strconv.FormatInt(ownerID, 10)
	if err := os.MkdirAll(filepath.Join(s.dir, bucket, owner), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key := owner + "/" + uuid.NewString() + mt.Extension()
	path := filepath.Join(s.dir, bucket, filepath.FromSlash(key))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error("failed to write file", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("file stored", slog.String("key", key), slog.Int("size", len(data)))
	return &File{
		Bucket:      bucket,
		Key:         key,
		URL:         URLPrefix + bucket + "/" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Open открывает файл бакета для отдачи клиенту
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadSeekCloser, time.Time, error) {
	const op = "filestore.Store.Open"

	if _, ok := Buckets[bucket]; !ok {
		return nil, time.Time{}, ErrUnknownBucket
	}
	if _, err := OwnerOf(key); err != nil {
		return nil, time.Time{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, bucket, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, ErrFileNotFound
		}
		return nil, time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, time.Time{}, ErrFileNotFound
	}
	return f, info.ModTime(), nil
}

// List файлы владельца в бакете, новые первыми
func (s *Store) List(ctx context.Context, bucket string, ownerID int64) ([]*File, error) {
	const op = "filestore.Store.List"

	if _, ok := Buckets[bucket]; !ok {
		return nil, ErrUnknownBucket
	}

	owner := strconv.FormatInt(ownerID, 10)
	entries, err := os.ReadDir(filepath.Join(s.dir, bucket, owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*File{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	files := make([]*File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		key := owner + "/" + e.Name()
		files = append(files, &File{
			Bucket:      bucket,
			Key:         key,
			URL:         URLPrefix + bucket + "/" + key,
			ContentType: contentTypeOf(filepath.Join(s.dir, bucket, owner, e.Name())),
			Size:        info.Size(),
			CreatedAt:   info.ModTime().UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

func contentTypeOf(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 3072)
	n, _ := io.ReadFull(f, head)
	return strings.SplitN(mimetype.Detect(head[:n]).String(), ";", 2)[0]
}
