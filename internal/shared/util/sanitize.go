package util

import (
	"errors"
	"path"
	"strings"
)

// SanitizeFileName removes path components and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	s = path.Base(s)
	if s == "" || s == "." || s == "/" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
