package fileservice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxImageBytes caps a single upload.
	MaxImageBytes = 10 << 20

	PendingPrefix = "pending:"
	DurablePrefix = "/files/"

	thumbnailSize = 256
)

var (
	ErrInvalidImage = errors.New("file is not a supported image")
	ErrFileNotFound = errors.New("file not found")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// RefState says what an image reference points at.
type RefState int

const (
	// RefUnset is the empty reference.
	RefUnset RefState = iota
	// RefPending names a staged upload that has not been saved with a profile.
	RefPending
	// RefDurable names a promoted file served under /files/.
	RefDurable
	// RefSession is a browser blob: URL. It died with the page that made it.
	RefSession
	// RefExternal is any other URL, kept as given.
	RefExternal
)

// ParseRef classifies ref and returns the file name for pending and durable refs.
func ParseRef(ref string) (RefState, string) {
	switch {
	case ref == "":
		return RefUnset, ""
	case strings.HasPrefix(ref, PendingPrefix):
		return RefPending, filepath.Base(strings.TrimPrefix(ref, PendingPrefix))
	case strings.HasPrefix(ref, DurablePrefix):
		return RefDurable, filepath.Base(strings.TrimPrefix(ref, DurablePrefix))
	case strings.HasPrefix(ref, "blob:"):
		return RefSession, ""
	default:
		return RefExternal, ""
	}
}

// Storage keeps staged uploads under root/pending and promoted images under root.
type Storage struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStorage creates the uploads folders if they are missing.
func NewStorage(root string, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Storage{root: root, logger: logger, now: time.Now}
	for _, dir := range []string{root, s.pendingDir(), s.thumbDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Storage) pendingDir() string { return filepath.Join(s.root, "pending") }
func (s *Storage) thumbDir() string   { return filepath.Join(s.root, "thumbs") }

// Stage stores an uploaded image as pending and returns its pending reference.
func (s *Storage) Stage(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mtype.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidImage, mtype.String())
	}

	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.pendingDir(), name), data, 0o644); err != nil {
		return "", fmt.Errorf("write staged image: %w", err)
	}

	s.logger.Debug("Image staged", zap.String("file", name), zap.String("type", mtype.String()))
	return PendingPrefix + name, nil
}

// Promote makes a pending reference durable and returns the new reference.
// Session blob references cannot outlive their page, so they become unset.
// Every other reference is returned unchanged.
func (s *Storage) Promote(ref string) (string, error) {
	state, name := ParseRef(ref)
	switch state {
	case RefSession:
		s.logger.Warn("Dropping session-bound image reference", zap.String("ref", ref))
		return "", nil
	case RefPending:
	default:
		return ref, nil
	}

	src := filepath.Join(s.pendingDir(), name)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	dst := filepath.Join(s.root, name)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("promote %s: %w", name, err)
	}

	if err := s.writeThumbnail(dst, name); err != nil {
		s.logger.Warn("Error creating thumbnail", zap.String("file", name), zap.Error(err))
	}

	s.logger.Info("Image promoted", zap.String("file", name))
	return DurablePrefix + name, nil
}

// Claim returns a reference no other profile holds. Durable files are copied
// under a new name and everything else goes through Promote.
func (s *Storage) Claim(ref string) (string, error) {
	state, name := ParseRef(ref)
	if state != RefDurable {
		return s.Promote(ref)
	}

	src, err := s.FilePath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	copied := uuid.New().String() + filepath.Ext(name)
	dst := filepath.Join(s.root, copied)
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("copy %s: %w", name, err)
	}

	if err := copyFile(filepath.Join(s.thumbDir(), name), filepath.Join(s.thumbDir(), copied)); err != nil {
		if err := s.writeThumbnail(dst, copied); err != nil {
			s.logger.Warn("Error creating thumbnail", zap.String("file", copied), zap.Error(err))
		}
	}

	s.logger.Info("Image copied", zap.String("from", name), zap.String("file", copied))
	return DurablePrefix + copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func (s *Storage) writeThumbnail(src, name string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	return imaging.Save(thumb, filepath.Join(s.thumbDir(), name))
}

// Discard removes the files behind a pending or durable reference.
func (s *Storage) Discard(ref string) {
	state, name := ParseRef(ref)
	var paths []string
	switch state {
	case RefPending:
		paths = []string{filepath.Join(s.pendingDir(), name)}
	case RefDurable:
		paths = []string{filepath.Join(s.root, name), filepath.Join(s.thumbDir(), name)}
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Error removing image", zap.String("path", p), zap.Error(err))
		}
	}
}

// PendingPath returns the path of a staged file.
func (s *Storage) PendingPath(filename string) (string, error) {
	return existing(filepath.Join(s.pendingDir(), filepath.Base(filename)))
}

// FilePath returns the path of a promoted file.
func (s *Storage) FilePath(filename string) (string, error) {
	return existing(filepath.Join(s.root, filepath.Base(filename)))
}

// ThumbnailPath returns the thumbnail for a promoted file, or the file itself
// when no thumbnail exists.
func (s *Storage) ThumbnailPath(filename string) (string, error) {
	if p, err := existing(filepath.Join(s.thumbDir(), filepath.Base(filename))); err == nil {
		return p, nil
	}
	return s.FilePath(filename)
}

// SweepPending deletes staged files older than maxAge and returns how many it removed.
func (s *Storage) SweepPending(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.pendingDir())
	if err != nil {
		s.logger.Warn("Error reading pending uploads", zap.Error(err))
		return 0
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || entry.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.pendingDir(), entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("Removed stale pending uploads", zap.Int("count", removed))
	}
	return removed
}

func existing(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}
