package ledger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// InfoFileName is the file the run's Info is written to inside the managed
// installs directory.
const InfoFileName = "InstallInfo.toml"

// LoadInfo reads the Info saved by a previous run. Returns an empty Info if
// the file does not exist.
func LoadInfo(dir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, InfoFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Info{}, nil
		}
		return nil, fmt.Errorf("reading install info: %w", err)
	}

	var info Info
	if err := toml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing install info: %w", err)
	}
	return &info, nil
}

// SaveInfo writes info atomically (write temp + rename). It reports whether
// the file content changed; an identical file is left untouched.
func SaveInfo(dir string, info Info) (bool, error) {
	data, err := toml.Marshal(info)
	if err != nil {
		return false, fmt.Errorf("marshaling install info: %w", err)
	}

	path := filepath.Join(dir, InfoFileName)
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, fmt.Errorf("writing temp install info: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("renaming install info: %w", err)
	}
	return true, nil
}
