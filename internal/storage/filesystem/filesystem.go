package filesystem

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/homevista/brokerage/internal/storage"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

// Storage implements storage.Storage on the local filesystem. Files are laid
// out under root by their key and served under baseURL by a static file
// handler.
type Storage struct {
	root    string
	baseURL string
}

// New creates a filesystem storage rooted at root. Uploaded files become
// reachable at baseURL + "/" + key.
func New(root, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Storage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// path resolves a key inside the root, rejecting traversal outside it.
func (s *Storage) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(key)))
	if !strings.HasPrefix(cleaned, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", apperrors.InvalidInput("invalid storage key")
	}
	return cleaned, nil
}

// Upload writes the file under its key and returns its public URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	dst, err := s.path(input.Key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, input.Data); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("write media file: %w", err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.baseURL + "/" + input.Key,
	}, nil
}

// Delete removes a stored file by its key.
func (s *Storage) Delete(_ context.Context, key string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(dst); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFound("media file", key)
		}
		return fmt.Errorf("delete media file: %w", err)
	}

	return nil
}

// VideoInfo probes a stored MP4 for its size and duration. Duration is read
// from the mvhd box; files without a parsable header report zero duration.
func (s *Storage) VideoInfo(_ context.Context, key string) (*storage.VideoMetadata, error) {
	dst, err := s.path(key)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("media file", key)
		}
		return nil, fmt.Errorf("stat media file: %w", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	duration := probeMP4Duration(f)

	return &storage.VideoMetadata{
		Key:      key,
		Size:     fi.Size(),
		Duration: duration,
	}, nil
}

// probeMP4Duration scans top-level MP4 boxes for moov/mvhd and extracts the
// duration. Returns 0 when the container is not parsable.
func probeMP4Duration(r io.ReadSeeker) float64 {
	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return 0
		}
		size := int64(binary.BigEndian.Uint32(header[:4]))
		boxType := string(header[4:8])
		if size < 8 {
			return 0
		}

		if boxType == "moov" {
			return scanMoov(r, size-8)
		}

		if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
			return 0
		}
	}
}

// scanMoov walks the children of a moov box looking for mvhd.
func scanMoov(r io.ReadSeeker, remaining int64) float64 {
	var header [8]byte
	for remaining > 8 {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return 0
		}
		size := int64(binary.BigEndian.Uint32(header[:4]))
		boxType := string(header[4:8])
		if size < 8 || size > remaining {
			return 0
		}

		if boxType == "mvhd" {
			body := make([]byte, size-8)
			if _, err := io.ReadFull(r, body); err != nil {
				return 0
			}
			return mvhdDuration(body)
		}

		if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
			return 0
		}
		remaining -= size
	}
	return 0
}

// mvhdDuration extracts timescale and duration from an mvhd box body
// (version byte + flags, then version-dependent layout).
func mvhdDuration(body []byte) float64 {
	if len(body) < 4 {
		return 0
	}
	version := body[0]

	if version == 1 {
		// 4 flags + 8 creation + 8 modification + 4 timescale + 8 duration
		if len(body) < 32 {
			return 0
		}
		timescale := binary.BigEndian.Uint32(body[20:24])
		duration := binary.BigEndian.Uint64(body[24:32])
		if timescale == 0 {
			return 0
		}
		return float64(duration) / float64(timescale)
	}

	// version 0: 4 flags + 4 creation + 4 modification + 4 timescale + 4 duration
	if len(body) < 20 {
		return 0
	}
	timescale := binary.BigEndian.Uint32(body[12:16])
	duration := binary.BigEndian.Uint32(body[16:20])
	if timescale == 0 {
		return 0
	}
	return float64(duration) / float64(timescale)
}
