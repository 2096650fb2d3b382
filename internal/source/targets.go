package source

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/nao1215/reviewharvest/internal/model"
)

// LoadTargets reads the target list at path. See ParseTargets.
func LoadTargets(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided target list is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	ids, err := ParseTargets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read target list %s: %w", path, err)
	}
	return ids, nil
}

// ParseTargets reads one target per line. Blank lines and lines starting
// with '#' are skipped. Lines may be bare ids or store URLs carrying the id
// in an "id" query parameter. An empty input yields no targets. An id that
// fails model.ValidateTargetID is an error naming its line.
func ParseTargets(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		id, ok := ParseTargetID(scanner.Text())
		if !ok {
			continue
		}
		if err := model.ValidateTargetID(id); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ParseTargetID extracts the target id from one line of the target list.
func ParseTargetID(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}

	if !strings.Contains(line, "=") {
		return line, true
	}

	if u, err := url.Parse(line); err == nil {
		if id := strings.TrimSpace(u.Query().Get("id")); id != "" {
			return id, true
		}
	}

	// Fallback for lines like "details?id=com.example.app" that are not
	// valid URLs: take the value after the first '='.
	_, rest, _ := strings.Cut(line, "=")
	rest, _, _ = strings.Cut(rest, "&")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}
