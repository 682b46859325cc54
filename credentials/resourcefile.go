package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/tidwall/jsonc"
)

type resourceFileEntry struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Environment map[string]string `json:"environment"`
}

type resourceFileDocument struct {
	Resources []resourceFileEntry `json:"resources"`
}

// ResourceFile is the scheduler resource file (qrmi_config.json). Comments
// and trailing commas are accepted.
type ResourceFile struct {
	Path      string
	resources []resourceFileEntry
}

func ParseResourceFile(path string, content []byte) (ResourceFile, error) {
	var doc resourceFileDocument
	if err := json.Unmarshal(jsonc.ToJSON(content), &doc); err != nil {
		return ResourceFile{}, fmt.Errorf("credentials: parse %s: %w", path, err)
	}
	return ResourceFile{Path: path, resources: doc.Resources}, nil
}

// Lookup returns the environment value of key for the named resource.
func (f ResourceFile) Lookup(resource string, key string) (string, bool) {
	for _, entry := range f.resources {
		if entry.Name != resource {
			continue
		}
		value := strings.TrimSpace(entry.Environment[key])
		return value, value != ""
	}
	return "", false
}

// Resources lists the names and declared types of every resource.
func (f ResourceFile) Resources() map[string]string {
	out := make(map[string]string, len(f.resources))
	for _, entry := range f.resources {
		out[entry.Name] = entry.Type
	}
	return out
}

func loadResourceFile(reader FileReader, path string) (ResourceFile, error) {
	if reader == nil || strings.TrimSpace(path) == "" {
		return ResourceFile{}, nil
	}
	content, err := reader.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return ResourceFile{Path: path}, nil
		}
		return ResourceFile{}, err
	}
	return ParseResourceFile(path, content)
}
