// Package manifest reads the MANIFEST file carried in every image archive. The
// file is flat text, one key=value pair per line, with no comments, quoting,
// or escapes.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrKeyNotFound is returned by Lookup when the file was read but has no
// line for the key
var ErrKeyNotFound = errors.New("key not found")

// GetValue returns the trimmed value of the first line in the file at
// 'manifestPath' whose key is 'key'. It returns the empty string if the file
// can't be read or has no such key. Callers treat empty as missing.
func GetValue(manifestPath string, key string) string {
	val, err := Lookup(manifestPath, key)
	if err != nil {
		log.Debugf("manifest %s key %q: %s", manifestPath, key, err)
		return ""
	}
	return val
}

// Lookup is like GetValue but reports why a value could not be produced:
// either a file error or ErrKeyNotFound.
func Lookup(manifestPath string, key string) (string, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading %s: %w", manifestPath, err)
	}
	return "", ErrKeyNotFound
}

// Read returns all the key/value pairs in the manifest. If a key appears more
// than once the first value wins, consistent with GetValue.
func Read(manifestPath string) (map[string]string, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	kvs := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		if _, exists := kvs[k]; !exists {
			kvs[k] = strings.TrimSpace(v)
		}
	}
	return kvs, scanner.Err()
}

// Lines returns the non-blank lines of the file at 'path' with surrounding white
// space removed. It serves files that are not key=value, like the host firmware
// VERSION file.
func Lines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
