// Package lockfile guards a working root against concurrent runs. The
// pipeline mutates the tree destructively in place, so a second run on the
// same root has to fail fast instead of interleaving.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const FileName = ".markctl.lock"

// ErrLocked means another run currently owns the working root.
var ErrLocked = errors.New("working root is locked by another run")

type Lock struct {
	path  string
	token string
}

// Acquire takes the exclusive run lock for root. It fails with ErrLocked
// when the lock file already exists, without inspecting its owner.
func Acquire(root string) (*Lock, error) {
	path := filepath.Join(root, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, err
	}
	token := uuid.NewString()
	_, werr := fmt.Fprintf(f, "owner=%s pid=%d\n", token, os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, errors.Join(werr, cerr)
	}
	return &Lock{path: path, token: token}, nil
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
