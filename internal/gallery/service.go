// Package gallery implements the photo pipeline: uploads are decoded,
// watermarked, and stored twice (original and marked) under the same
// filename in two directories.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/chai2010/webp"
	"github.com/jdeng/goheif"
	"go.uber.org/zap"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedType rejects uploads with an extension outside the allow-list.
	ErrUnsupportedType = errors.New("gallery: unsupported file type")
	// ErrDecode indicates the upload bytes could not be decoded as an image.
	ErrDecode = errors.New("gallery: image decode failed")
	// ErrNotFound indicates neither stored file existed for a filename.
	ErrNotFound = errors.New("gallery: file not found")

	errMissingDirs        = errors.New("gallery: image directories are required")
	errMissingWatermarker = errors.New("gallery: watermarker dependency required")
)

const jpegQuality = 95

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "webp": true,
	"gif": true, "heic": true, "heif": true, "jpe": true,
}

// servedExtensions are the files surfaced by List and Count; the re-encoding
// rules guarantee stored files always land in this set.
var servedExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true,
}

var unsafeNameRunes = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// LikeForgetter drops like state when a photo is removed.
type LikeForgetter interface {
	Forget(ctx context.Context, filename string) error
}

// ServiceConfig wires the gallery service dependencies.
type ServiceConfig struct {
	OriginalDir    string
	WatermarkedDir string
	Watermarker    *Watermarker
	Likes          LikeForgetter
	Logger         *zap.Logger
}

// Service stores uploaded photos and their watermarked derivatives.
type Service struct {
	originalDir    string
	watermarkedDir string
	watermarker    *Watermarker
	likes          LikeForgetter
	logger         *zap.Logger
}

// NewService validates dependencies, ensures both image directories exist,
// and returns a gallery service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.OriginalDir == "" || cfg.WatermarkedDir == "" {
		return nil, errMissingDirs
	}
	if cfg.Watermarker == nil {
		return nil, errMissingWatermarker
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, dir := range []string{cfg.OriginalDir, cfg.WatermarkedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("gallery: create image directory: %w", err)
		}
	}

	return &Service{
		originalDir:    cfg.OriginalDir,
		watermarkedDir: cfg.WatermarkedDir,
		watermarker:    cfg.Watermarker,
		likes:          cfg.Likes,
		logger:         logger,
	}, nil
}

// Upload stores one photo. GIFs bypass compositing and are stored
// byte-identical in both directories. HEIC/HEIF decode through the dedicated
// codec; those and jpe are re-encoded and stored as .jpg. All other formats
// decode through the registered image codecs, get the watermark applied, and
// are re-encoded flattened to an opaque image at quality 95. Returns the
// stored filename.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	sourceExt := extension(filename)
	if !allowedExtensions[sourceExt] {
		return "", ErrUnsupportedType
	}

	storedExt := sourceExt
	switch sourceExt {
	case "heic", "heif", "jpe":
		storedExt = "jpg"
	}
	stored := sanitizeBaseName(filename) + "." + storedExt

	originalPath := filepath.Join(s.originalDir, stored)
	watermarkedPath := filepath.Join(s.watermarkedDir, stored)

	if storedExt == "gif" {
		// Animated images are stored untouched; compositing frames is out of scope.
		if err := os.WriteFile(originalPath, data, 0o644); err != nil {
			return "", fmt.Errorf("gallery: store original: %w", err)
		}
		if err := os.WriteFile(watermarkedPath, data, 0o644); err != nil {
			return "", fmt.Errorf("gallery: store watermarked: %w", err)
		}
		s.logger.Info("gif uploaded", zap.String("file", stored))
		return stored, nil
	}

	var src image.Image
	var err error
	if sourceExt == "heic" || sourceExt == "heif" {
		src, err = goheif.Decode(bytes.NewReader(data))
		if err != nil {
			s.logger.Error("heif decode failed", zap.String("file", stored), zap.Error(err))
			return "", fmt.Errorf("%w: heif: %v", ErrDecode, err)
		}
	} else {
		src, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			s.logger.Error("image decode failed", zap.String("file", stored), zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	marked := s.watermarker.Apply(src)

	if err := writeImage(originalPath, src, storedExt); err != nil {
		return "", err
	}
	if err := writeImage(watermarkedPath, marked, storedExt); err != nil {
		return "", err
	}

	s.logger.Info("photo uploaded", zap.String("file", stored))
	return stored, nil
}

// Delete removes both stored files for a filename and forgets its likes.
// Returns ErrNotFound when neither file existed.
func (s *Service) Delete(ctx context.Context, filename string) error {
	// Path traversal guard: only the plain file name is honored.
	name := filepath.Base(filepath.ToSlash(filename))

	if s.likes != nil {
		if err := s.likes.Forget(ctx, name); err != nil {
			s.logger.Error("forget likes failed", zap.String("file", name), zap.Error(err))
		}
	}

	removed := false
	for _, path := range []string{
		filepath.Join(s.originalDir, name),
		filepath.Join(s.watermarkedDir, name),
	} {
		err := os.Remove(path)
		if err == nil {
			removed = true
		} else if !os.IsNotExist(err) {
			s.logger.Error("remove failed", zap.String("file", name), zap.Error(err))
		}
	}

	if !removed {
		return ErrNotFound
	}
	s.logger.Info("photo deleted", zap.String("file", name))
	return nil
}

// List returns served image filenames from the watermarked directory, newest
// first by modification time. A missing directory yields an empty list.
func (s *Service) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.watermarkedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("gallery: read watermarked directory: %w", err)
	}

	type dated struct {
		name    string
		modUnix int64
	}
	files := make([]dated, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !servedExtensions[extension(entry.Name())] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, dated{name: entry.Name(), modUnix: info.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modUnix != files[j].modUnix {
			return files[i].modUnix > files[j].modUnix
		}
		return files[i].name < files[j].name
	})

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.name)
	}
	return names, nil
}

// Count returns the number of served photos.
func (s *Service) Count(ctx context.Context) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// writeImage flattens to an opaque image and encodes per the stored
// extension, buffering so a failed encode leaves no partial file behind.
func writeImage(path string, img image.Image, ext string) error {
	flat := flatten(img)

	var buf bytes.Buffer
	var err error
	switch ext {
	case "png":
		err = png.Encode(&buf, flat)
	case "webp":
		err = webp.Encode(&buf, flat, &webp.Options{Quality: jpegQuality})
	default:
		err = jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return fmt.Errorf("gallery: encode %s: %w", ext, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("gallery: store image: %w", err)
	}
	return nil
}

// flatten composites the image over a white background, discarding alpha.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

// extension returns the lowercased extension without the dot, empty when the
// name has none.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return strings.TrimPrefix(ext, ".")
}

// sanitizeBaseName strips any path components and squashes characters outside
// [A-Za-z0-9_.-] so stored names are safe on every filesystem.
func sanitizeBaseName(filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeNameRunes.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	return base
}
