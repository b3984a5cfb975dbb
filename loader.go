// FILE: lixenwraith/profile/loader.go
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Supported profile file formats
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MaxFileSize bounds the size of a profile file accepted by the loader.
const MaxFileSize = 10 << 20

// Parse decodes a profile document into a new tree. Tables become sections,
// scalars become relations and arrays repeat their key once per element.
func Parse(data []byte, format string) (*Node, error) {
	if format == "" || format == "auto" {
		format = detectFormatFromContent(data)
	}

	doc := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse TOML profile: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	root, _ := NewSection(rootName)
	if err := buildSection(root, doc); err != nil {
		root.Destroy()
		return nil, err
	}
	return root, nil
}

// loadFile reads and parses a profile file.
func loadFile(path, format string) (*Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat profile '%s': %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("profile '%s' exceeds maximum size %d bytes", path, MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile '%s': %w", path, err)
	}

	if format == "" || format == "auto" {
		format = detectFileFormat(path)
	}
	root, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// buildSection adds the decoded document entries under section. Keys are
// visited in sorted order so that errors are reported deterministically; the
// resulting child order does not depend on it.
func buildSection(section *Node, doc map[string]any) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := buildEntry(section, key, doc[key]); err != nil {
			return err
		}
	}
	return nil
}

func buildEntry(section *Node, key string, value any) error {
	switch v := value.(type) {
	case map[string]any:
		name, final := sectionKey(key)
		child, err := section.AddSection(name)
		if err != nil {
			return err
		}
		if final {
			child.final = true
		}
		return buildSection(child, v)
	case []map[string]any:
		for _, m := range v {
			if err := buildEntry(section, key, m); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, elem := range v {
			if _, nested := elem.([]any); nested {
				return fmt.Errorf("%w: nested array under %q", ErrUnrepresentable, key)
			}
			if err := buildEntry(section, key, elem); err != nil {
				return err
			}
		}
		return nil
	default:
		s, err := formatScalar(v)
		if err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		_, err = section.AddRelation(key, s)
		return err
	}
}

// encodeSection converts a tree back into the document shape accepted by
// the encoders. Repeated names become arrays. Final and non-final sections
// sharing a name are stored under separate keys that parse back non-final
// first, so a final section may not precede a non-final one.
func encodeSection(section *Node) (map[string]any, error) {
	doc := make(map[string]any)
	kinds := make(map[string]bool)
	finalSeen := make(map[string]bool)

	for c := section.first; c != nil; c = c.next {
		key := c.name
		var value any
		if c.hasValue {
			value = c.value
		} else {
			if finalSeen[c.name] && !c.final {
				return nil, fmt.Errorf("%w: final section %q precedes a non-final one", ErrUnrepresentable, c.name)
			}
			if c.final {
				finalSeen[c.name] = true
				key += finalMarker
			}
			sub, err := encodeSection(c)
			if err != nil {
				return nil, err
			}
			value = sub
		}

		prev, exists := doc[key]
		if !exists {
			doc[key] = value
			kinds[key] = c.hasValue
			continue
		}
		if kinds[key] != c.hasValue {
			return nil, fmt.Errorf("%w: %q is both a section and a relation", ErrUnrepresentable, key)
		}
		switch p := prev.(type) {
		case string:
			doc[key] = []string{p, value.(string)}
		case []string:
			doc[key] = append(p, value.(string))
		case map[string]any:
			doc[key] = []map[string]any{p, value.(map[string]any)}
		case []map[string]any:
			doc[key] = append(p, value.(map[string]any))
		}
	}
	return doc, nil
}

// Encode renders a tree in the given format.
func Encode(root *Node, format string) ([]byte, error) {
	if err := root.check(); err != nil {
		return nil, err
	}
	doc, err := encodeSection(root)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatTOML, "":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to marshal profile to TOML: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile to JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile to YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// saveFile encodes the tree and writes it atomically.
func saveFile(path, format string, root *Node) error {
	if format == "" || format == "auto" {
		format = detectFileFormat(path)
	}
	data, err := Encode(root, format)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data through a pending file that is fsynced and
// renamed over path, keeping the permissions of an existing file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	pending, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(0644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup() // no-op once replaced

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	return nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// TOML before YAML: a flat "key = value" document is a YAML scalar error
	// but valid TOML, while most block YAML fails TOML parsing.
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}
