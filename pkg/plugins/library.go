package plugins

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSymbolNotFound is returned by Library.Lookup for an unknown symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Library is one opened plugin library
type Library interface {
	Path() string
	Lookup(symbol string) (any, error)
}

// Opener opens a file as a Library
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(path string) (Library, error)

// Open calls f(path)
func (f OpenerFunc) Open(path string) (Library, error) {
	return f(path)
}

// Handle is an opened library owned by an Arena. Symbols resolved through a Handle are
// valid for as long as the Arena lives, which is the whole process.
type Handle struct {
	ID       uuid.UUID
	Path     string
	OpenedAt time.Time

	lib Library
}

// Name returns the library file name
func (h *Handle) Name() string {
	return filepath.Base(h.Path)
}

// Lookup resolves an exported symbol
func (h *Handle) Lookup(symbol string) (any, error) {
	sym, err := h.lib.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return sym, nil
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s (%s)", h.Name(), h.ID)
}

// Arena owns every opened library. It only grows; handles are never closed.
type Arena struct {
	mu      sync.RWMutex
	handles []*Handle
}

// NewArena returns an empty Arena
func NewArena() *Arena {
	return &Arena{}
}

// Adopt takes ownership of lib and returns its handle
func (a *Arena) Adopt(lib Library) *Handle {
	h := &Handle{
		ID:       uuid.New(),
		Path:     lib.Path(),
		OpenedAt: time.Now(),
		lib:      lib,
	}

	a.mu.Lock()
	a.handles = append(a.handles, h)
	a.mu.Unlock()

	return h
}

// Handles returns the handles in the order they were opened
func (a *Arena) Handles() []*Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.handles)
}

// Len returns the number of opened libraries
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.handles)
}
