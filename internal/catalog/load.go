package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// catalogExt is the file extension of catalog files in a catalogs directory.
const catalogExt = ".toml"

// LoadDir reads every *.toml catalog file in dir. Each file is a catalog named
// after the file; its descriptors are always visible in that catalog. A
// descriptor repeated across files (same name and version) is kept once with
// the catalog names merged.
func LoadDir(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalogs directory: %w", err)
	}

	var out []Descriptor
	// key → index in out, for descriptors from earlier files.
	seen := make(map[string]int)
	files := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), catalogExt) {
			continue
		}
		files++
		descs, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		local := make(map[string]bool)
		for _, d := range descs {
			key := d.Name + "\x00" + d.Version
			if idx, ok := seen[key]; ok && !local[key] {
				out[idx].Catalogs = mergeNames(out[idx].Catalogs, d.Catalogs)
				continue
			}
			local[key] = true
			seen[key] = len(out)
			out = append(out, d)
		}
	}
	if files == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCatalogs, dir)
	}
	return out, nil
}

// LoadFile parses a single catalog file. The catalog name is the file's base
// name without extension.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	for i := range f.Items {
		f.Items[i].SourceFile = base
		if !f.Items[i].InCatalog(name) {
			f.Items[i].Catalogs = append(f.Items[i].Catalogs, name)
		}
	}
	return f.Items, nil
}

func mergeNames(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
