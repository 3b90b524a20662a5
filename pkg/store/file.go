package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetry is how often a blocked FileStore retries its lock.
const lockRetry = 50 * time.Millisecond

// FileStore keeps every saved candidate in one JSON file. Each operation
// holds a file lock for its whole read-modify-write, so several CLI
// processes can share the file safely.
type FileStore struct {
	mu   sync.Mutex // a Flock is reentrant within one process
	path string
	lock *flock.Flock
	now  func() time.Time
}

type fileData struct {
	Candidates []Saved `json:"candidates"`
}

// NewFileStore opens (or lazily creates) the store at path. An empty path
// selects ~/.config/devscout/saved.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "devscout", "saved.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock"), now: time.Now}, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Save(ctx context.Context, s Saved) (Saved, error) {
	var out Saved
	err := f.update(ctx, func(items []Saved) ([]Saved, error) {
		i := indexOf(items, s.Username)
		var prev *Saved
		if i >= 0 {
			prev = &items[i]
		}
		next, err := prepare(s, prev, f.now())
		if err != nil {
			return nil, err
		}
		out = next
		if i >= 0 {
			items[i] = next
			return items, nil
		}
		return append(items, next), nil
	})
	return out, err
}

func (f *FileStore) Get(ctx context.Context, username string) (Saved, error) {
	items, err := f.read(ctx)
	if err != nil {
		return Saved{}, err
	}
	if i := indexOf(items, username); i >= 0 {
		return items[i], nil
	}
	return Saved{}, ErrNotFound
}

func (f *FileStore) List(ctx context.Context, flt Filter) ([]Saved, error) {
	items, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Saved, 0, len(items))
	for _, s := range items {
		if flt.Match(s) {
			out = append(out, s)
		}
	}
	sortNewest(out)
	return out, nil
}

func (f *FileStore) UpdateStatus(ctx context.Context, username string, st Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	return f.update(ctx, func(items []Saved) ([]Saved, error) {
		i := indexOf(items, username)
		if i < 0 {
			return nil, ErrNotFound
		}
		items[i].Status = st
		items[i].UpdatedAt = f.now()
		return items, nil
	})
}

func (f *FileStore) Delete(ctx context.Context, username string) error {
	return f.update(ctx, func(items []Saved) ([]Saved, error) {
		i := indexOf(items, username)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) read(ctx context.Context) ([]Saved, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	locked, err := f.lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return nil, fmt.Errorf("lock %s: %w", f.path, lockErr(err))
	}
	defer f.lock.Unlock()
	return f.load()
}

// update runs fn on the current contents under an exclusive lock and writes
// the result back atomically. The file is left untouched when fn fails.
func (f *FileStore) update(ctx context.Context, fn func([]Saved) ([]Saved, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	locked, err := f.lock.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return fmt.Errorf("lock %s: %w", f.path, lockErr(err))
	}
	defer f.lock.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return f.write(items)
}

func (f *FileStore) load() ([]Saved, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return fd.Candidates, nil
}

func (f *FileStore) write(items []Saved) error {
	data, err := json.MarshalIndent(fileData{Candidates: items}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".saved-*")
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
	return os.Rename(tmp.Name(), f.path)
}

func lockErr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("lock not acquired")
}

func indexOf(items []Saved, username string) int {
	key := Key(username)
	for i, s := range items {
		if Key(s.Username) == key {
			return i
		}
	}
	return -1
}

var _ Store = (*FileStore)(nil)
