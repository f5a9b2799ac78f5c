// assets/embed.go
//
// Embedded game data. items.txt is the symbol catalog: one glyph reference
// per line; the presenter resolves each name to card face art.

package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed items.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// ItemsList returns the embedded symbol catalog in catalog order.
func ItemsList() ([]string, error) {
	return readLines("items.txt")
}
