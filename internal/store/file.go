package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/questforge/internal/models"
)

// DefaultSaveDir is where FileDurable writes when no directory is configured.
const DefaultSaveDir = ".saves"

// FileDurable keeps one YAML document per session under dir.
type FileDurable struct {
	dir string
}

func NewFileDurable(dir string) (*FileDurable, error) {
	if dir == "" {
		dir = DefaultSaveDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileDurable{dir: dir}, nil
}

// Ids are uuids, which also keeps them from escaping dir.
func (f *FileDurable) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(f.dir, id+".yaml"), nil
}

func (f *FileDurable) Load(ctx context.Context, id string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(id)
	if err != nil {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sess models.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return &sess, nil
}

func (f *FileDurable) Save(ctx context.Context, sess *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(sess.ID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, sess.ID+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *FileDurable) Delete(ctx context.Context, id string) error {
	p, err := f.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the ids of all saved sessions, sorted.
func (f *FileDurable) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		id := strings.TrimSuffix(name, ".yaml")
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *FileDurable) Close() error { return nil }
