package extract

import (
	"fmt"
	"os"
	"strings"
)

// textPages reads a plain-text file, splitting on form feeds when present so
// pre-paginated exports keep their page boundaries.
func textPages(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	return strings.Split(string(raw), "\f"), nil
}
