// internal/catalog/catalog.go
//
// Symbol catalog for the game board.
//
// Responsibilities:
//   - Load the list of pairable glyphs once at startup.
//   - Validate and normalize entries (lowercase, [a-z0-9_-], no duplicates).
//
// Initialization behavior (Init):
//   1. If a path is given (CATALOG_FILE), load glyphs from that file.
//   2. Otherwise fall back to the embedded assets/items.txt.
//
// The catalog size is fixed for the life of the process; every board has
// exactly 2*Size() tiles.

package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/devmemory/apps/go-server/assets"
)

// ErrEmpty is returned when no valid glyph could be loaded.
var ErrEmpty = errors.New("catalog: no glyphs")

var (
	initOnce   sync.Once
	glyphs     []string
	initialErr error
)

// Init loads the catalog exactly once.
func Init(path string) error {
	initOnce.Do(func() {
		var raw []string
		var err error
		if path != "" {
			raw, err = readFile(path)
		} else {
			raw, err = assets.ItemsList()
		}
		if err != nil {
			initialErr = fmt.Errorf("catalog: load: %w", err)
			return
		}
		glyphs = Normalize(raw)
		if len(glyphs) == 0 {
			initialErr = ErrEmpty
		}
	})
	return initialErr
}

// Glyphs returns a copy of the loaded catalog.
func Glyphs() []string { return append([]string(nil), glyphs...) }

// Size is the number of pairs on a board.
func Size() int { return len(glyphs) }

// Normalize lowercases entries, drops invalid ones and removes duplicates
// while keeping the first occurrence's position.
func Normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		g := strings.ToLower(strings.TrimSpace(s))
		if g == "" || strings.HasPrefix(g, "#") || !validGlyph(g) {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func validGlyph(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
