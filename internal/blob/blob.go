// Package blob stores uploaded media on local disk: images under one
// directory, videos under another. Filenames are generated server-side;
// callers never pick the stored name.
package blob

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mirabellier/backend/internal/model"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrBadFilename     = errors.New("bad filename")
	ErrUnsupportedType = errors.New("unsupported media type")
)

// videoTypes is the upload allow-list.
var videoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
}

type Store struct {
	imagesDir string
	videosDir string
}

func NewStore(imagesDir, videosDir string) (*Store, error) {
	for _, dir := range []string{imagesDir, videosDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return &Store{imagesDir: imagesDir, videosDir: videosDir}, nil
}

func (s *Store) ImagesDir() string { return s.imagesDir }
func (s *Store) VideosDir() string { return s.videosDir }

// SaveImage writes an uploaded image and returns the stored filename, which
// is the upload timestamp prefixed to the client's original name.
func (s *Store) SaveImage(originalName string, r io.Reader) (string, error) {
	base := sanitizeBaseName(originalName)
	if base == "" {
		return "", ErrBadFilename
	}
	filename := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)
	if err := writeFile(filepath.Join(s.imagesDir, filename), r); err != nil {
		return "", err
	}
	return filename, nil
}

// SaveVideo writes an uploaded video under a fully generated name. Only the
// allow-listed container types are accepted.
func (s *Store) SaveVideo(contentType string, r io.Reader) (string, error) {
	ext, ok := videoTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("mirabellier-video-%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
	if err := writeFile(filepath.Join(s.videosDir, filename), r); err != nil {
		return "", err
	}
	return filename, nil
}

// ListImages returns stored images, newest first.
func (s *Store) ListImages() ([]model.ImageInfo, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return nil, err
	}
	images := []model.ImageInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		images = append(images, model.ImageInfo{
			Filename:   entry.Name(),
			URL:        "/images/" + entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.Slice(images, func(i, j int) bool {
		return images[i].ModifiedAt.After(images[j].ModifiedAt)
	})
	return images, nil
}

// StatImage returns metadata for one stored image. The filename must be a
// bare name; anything that could walk out of the images directory is
// rejected.
func (s *Store) StatImage(filename string) (model.ImageInfo, error) {
	if !safeFilename(filename) {
		return model.ImageInfo{}, ErrBadFilename
	}
	info, err := os.Stat(filepath.Join(s.imagesDir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ImageInfo{}, ErrNotFound
		}
		return model.ImageInfo{}, err
	}
	return model.ImageInfo{
		Filename:   filename,
		URL:        "/images/" + filename,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// DeleteVideoFile removes a stored video. Missing files are a no-op so that a
// row delete can always proceed.
func (s *Store) DeleteVideoFile(filename string) error {
	if !safeFilename(filename) {
		return ErrBadFilename
	}
	err := os.Remove(filepath.Join(s.videosDir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// sanitizeBaseName strips any client-supplied directory components and
// rejects names that still look like traversal.
func sanitizeBaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || !safeFilename(base) {
		return ""
	}
	return base
}

func safeFilename(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
