package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Keys accepted by SetValue and UnsetValue.
var settableKeys = map[string]string{
	"base_url":       "string",
	"payment_key_id": "string",
	"workspace_id":   "string",
	"project_id":     "string",
	"cache_dir":      "string",
	"format":         "format",
	"hints":          "bool",
	"stats":          "bool",
	"verbose":        "verbose",
}

// SettableKeys lists keys that can be persisted, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue validates and writes key=value into the JSON file at path.
func SetValue(path, key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	var typed any
	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		typed = b
	case "verbose":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 2 {
			return fmt.Errorf("verbose must be 0, 1 or 2")
		}
		typed = n
	case "format":
		switch value {
		case "auto", "json", "markdown", "md", "styled", "quiet":
		default:
			return fmt.Errorf("format must be one of auto, json, markdown, styled, quiet")
		}
		typed = value
	default:
		typed = value
	}

	m, err := readFile(path)
	if err != nil {
		return err
	}
	m[key] = typed
	return writeFile(path, m)
}

// UnsetValue removes key from the JSON file at path.
func UnsetValue(path, key string) error {
	if _, ok := settableKeys[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	m, err := readFile(path)
	if err != nil {
		return err
	}
	delete(m, key)
	return writeFile(path, m)
}

func readFile(path string) (map[string]any, error) {
	m := map[string]any{}
	data, err := os.ReadFile(path) //nolint:gosec // G304: caller supplies a config path
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// writeFile writes atomically via temp file and rename.
func writeFile(path string, m map[string]any) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
