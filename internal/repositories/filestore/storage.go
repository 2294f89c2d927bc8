// Package filestore persists each collection as a JSON array file. Every
// file is owned by one goroutine that runs all reads and writes in order, so
// concurrent requests can no longer lose each other's updates.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/docstore"
)

// FileStorage is a docstore.Storage backed by a single JSON file.
type FileStorage struct {
	path string
	ops  chan func()
	done chan struct{}
	once sync.Once
}

var _ docstore.Storage = (*FileStorage)(nil)

// Open starts the goroutine owning path. The file is created on first write.
func Open(path string) *FileStorage {
	s := &FileStorage{
		path: path,
		ops:  make(chan func()),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) loop() {
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.done:
			return
		}
	}
}

// run hands fn to the owning goroutine and waits for it to finish. Once an
// operation is accepted it always runs to completion.
func (s *FileStorage) run(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case <-s.done:
		return repositories.ErrClosed
	default:
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return repositories.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (s *FileStorage) Load(ctx context.Context) ([]models.Record, error) {
	var (
		recs []models.Record
		err  error
	)
	if runErr := s.run(ctx, func() { recs, err = s.read() }); runErr != nil {
		return nil, runErr
	}
	return recs, err
}

func (s *FileStorage) Update(ctx context.Context, fn func([]models.Record) ([]models.Record, bool, error)) error {
	var err error
	runErr := s.run(ctx, func() {
		var current []models.Record
		if current, err = s.read(); err != nil {
			return
		}
		next, changed, fnErr := fn(current)
		if fnErr != nil || !changed {
			err = fnErr
			return
		}
		err = s.write(next)
	})
	if runErr != nil {
		return runErr
	}
	return err
}

// Ping checks that the owning goroutine is alive and the directory exists.
func (s *FileStorage) Ping(ctx context.Context) error {
	var err error
	if runErr := s.run(ctx, func() {
		_, err = os.Stat(filepath.Dir(s.path))
	}); runErr != nil {
		return runErr
	}
	return err
}

// Close stops the owning goroutine. Later calls fail with ErrClosed.
func (s *FileStorage) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *FileStorage) read() ([]models.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Record{}, nil
	}
	var recs []models.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if recs == nil {
		recs = []models.Record{}
	}
	return recs, nil
}

// write replaces the file through a synced temp file and a rename.
func (s *FileStorage) write(recs []models.Record) error {
	if recs == nil {
		recs = []models.Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
