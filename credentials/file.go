package credentials

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type OSFileReader struct{}

func (OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapFileReader serves files from memory; missing paths behave like
// fs.ErrNotExist.
type MapFileReader map[string]string

func (m MapFileReader) ReadFile(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(content), nil
}

// ConfigFile holds the key=value pairs of a per-vendor config file. Keys are
// lower-cased; backend-scoped keys keep their "<backend>." prefix.
type ConfigFile struct {
	Path   string
	values map[string]string
}

// ParseConfigFile reads the key=value grammar: blank lines and lines starting
// with '#' or ';' are skipped, values may be single or double quoted.
func ParseConfigFile(path string, content []byte) ConfigFile {
	values := map[string]string{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(stripQuotes(strings.TrimSpace(value)))
	}
	return ConfigFile{Path: path, values: values}
}

func stripQuotes(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// Global returns an unscoped key.
func (c ConfigFile) Global(key string) (string, bool) {
	value, ok := c.values[strings.ToLower(key)]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Scoped returns "<backend>.<key>". The backend part is everything before the
// last dot, so dotted backend names such as qpu.aria-1 work.
func (c ConfigFile) Scoped(backend string, key string) (string, bool) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return "", false
	}
	key = strings.ToLower(key)
	for raw, value := range c.values {
		index := strings.LastIndex(raw, ".")
		if index <= 0 || raw[index+1:] != key || raw[:index] != backend {
			continue
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}

func (c ConfigFile) Empty() bool {
	return len(c.values) == 0
}

func loadConfigFile(reader FileReader, homeDir string, dir string) (ConfigFile, error) {
	if reader == nil || strings.TrimSpace(homeDir) == "" || strings.TrimSpace(dir) == "" {
		return ConfigFile{}, nil
	}
	path := filepath.Join(homeDir, dir, "config")
	content, err := reader.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ConfigFile{Path: path}, nil
		}
		return ConfigFile{}, err
	}
	return ParseConfigFile(path, content), nil
}
