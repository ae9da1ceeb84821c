package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver hands out output paths to input files so that no two
// inputs in one run write the same WAV. The first claimant keeps the plain
// path; later ones get " - dupN" before the extension. All methods are
// goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	foldCase bool
	owners   map[string]string // claim key → input that owns it
	assigned map[string]string // input → path handed out
	counters map[string]int    // requested claim key → next dup counter
}

// NewCollisionResolver creates a ready-to-use resolver. With foldCase set,
// paths differing only in letter case collide, matching case-insensitive
// filesystems.
func NewCollisionResolver(foldCase bool) *CollisionResolver {
	return &CollisionResolver{
		foldCase: foldCase,
		owners:   make(map[string]string),
		assigned: make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the output path for input. Resolving the same input twice
// returns the same path.
func (cr *CollisionResolver) Resolve(input, requestedOutput string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if path, ok := cr.assigned[input]; ok {
		return path
	}
	if cr.claim(cr.key(requestedOutput), input) {
		cr.assigned[input] = requestedOutput
		return requestedOutput
	}

	dir := filepath.Dir(requestedOutput)
	base := filepath.Base(requestedOutput)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	reqKey := cr.key(requestedOutput)
	counter := max(cr.counters[reqKey], 1)
	for ; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s - dup%d%s", stem, counter, ext))
		if cr.claim(cr.key(candidate), input) {
			cr.counters[reqKey] = counter + 1
			cr.assigned[input] = candidate
			return candidate
		}
	}
}

// Claimed reports how many output paths have been handed out.
func (cr *CollisionResolver) Claimed() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.owners)
}

// claim records input as owner of key when it is free or already input's.
func (cr *CollisionResolver) claim(key, input string) bool {
	owner, exists := cr.owners[key]
	if exists && owner != input {
		return false
	}
	cr.owners[key] = input
	return true
}

func (cr *CollisionResolver) key(path string) string {
	if cr.foldCase {
		return strings.ToLower(path)
	}
	return path
}
