package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

// FileStore keeps one URI per line in a plain text file. Each Add is appended
// and synced before returning, so a crash loses at most the in-flight entry.
type FileStore struct {
	path string

	mu sync.Mutex
	f  *os.File
}

var _ domain.SeenStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads every non-blank line. A missing file is an empty set.
func (s *FileStore) Load(ctx context.Context) (domain.SeenSet, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewSeenSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seen file: %w", err)
	}
	defer f.Close()

	seen := domain.NewSeenSet()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			seen.Add(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seen file: %w", err)
	}
	return seen, nil
}

func (s *FileStore) Add(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		f, err := s.openAppend()
		if err != nil {
			return err
		}
		s.f = f
	}

	if _, err := s.f.WriteString(uri + "\n"); err != nil {
		return fmt.Errorf("append seen file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync seen file: %w", err)
	}
	return nil
}

// openAppend opens the file for appending and terminates a trailing partial
// line so the next URI starts on its own line.
func (s *FileStore) openAppend() (*os.File, error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create seen dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open seen file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat seen file: %w", err)
	}
	if info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
			f.Close()
			return nil, fmt.Errorf("read seen file: %w", err)
		}
		if last[0] != '\n' {
			if _, err := f.WriteString("\n"); err != nil {
				f.Close()
				return nil, fmt.Errorf("append seen file: %w", err)
			}
		}
	}
	return f, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
