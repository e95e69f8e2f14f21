// Package catalog implements minidb's textual DatabaseCatalog: the external
// collaborator named in spec §1 that resolves logical table/index names to
// file paths. It is out of the engine's core: cmd/minidb's pre_process
// records the three heap files here, while run_query derives its heap file
// paths from the data directory and does not read the catalog. It is built
// here per SPEC_FULL.md.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Catalog maps logical table/index names to the file paths that back them,
// persisted as a flat "name=path" text file, one entry per line.
type Catalog struct {
	path    string
	entries map[string]string
}

// Load reads path's "name=path" lines into a Catalog. A missing file yields
// an empty catalog rather than an error, so a fresh data directory needs no
// pre-seeded catalog file.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path, entries: make(map[string]string)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, filePath, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("catalog: malformed line %q in %s", line, path)
		}
		c.entries[name] = filePath
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return c, nil
}

// Register records that name resolves to filePath, overwriting any prior
// mapping, and persists the catalog to its backing file.
func (c *Catalog) Register(name, filePath string) error {
	c.entries[name] = filePath
	return c.save()
}

// Resolve returns the file path registered for name.
func (c *Catalog) Resolve(name string) (string, bool) {
	p, ok := c.entries[name]
	return p, ok
}

func (c *Catalog) save() error {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, c.entries[name])
	}
	if err := os.WriteFile(c.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", c.path, err)
	}
	return nil
}
