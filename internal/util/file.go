package util

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// WriteFileAtomic writes the given data to path, replacing any existing file
// only once the complete content has been written.
func WriteFileAtomic(path string, data []byte) error {
	parentDir := filepath.Dir(path)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
