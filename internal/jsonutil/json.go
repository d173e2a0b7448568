package jsonutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/deploymenttheory/go-api-runner/internal/fsutil"
)

// JSONFormat represents the formatting style for JSON files
type JSONFormat int

const (
	// FormatIndented uses indented JSON
	FormatIndented JSONFormat = iota
	// FormatMinified removes all whitespace
	FormatMinified
)

// JSONOptions provides configuration for JSON operations
type JSONOptions struct {
	Format       JSONFormat
	IndentPrefix string
	IndentSize   int
}

// DefaultJSONOptions provides default settings for JSON formatting
var DefaultJSONOptions = JSONOptions{
	Format:       FormatIndented,
	IndentPrefix: "",
	IndentSize:   2,
}

// WriteJSON writes data to a JSON file, creating its directory when missing
func WriteJSON(path string, data interface{}, options ...JSONOptions) error {
	if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrFileWriteError, err.Error())
	}

	jsonData, err := Marshal(data, options...)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrFileWriteError, err.Error())
	}
	return nil
}

// Marshal encodes data with the given formatting, ending with a newline
func Marshal(data interface{}, options ...JSONOptions) ([]byte, error) {
	// Use default options if not provided
	opts := DefaultJSONOptions
	if len(options) > 0 {
		opts = options[0]
	}

	var jsonData []byte
	var err error

	switch opts.Format {
	case FormatMinified:
		jsonData, err = json.Marshal(data)
	default:
		jsonData, err = json.MarshalIndent(data, opts.IndentPrefix, strings.Repeat(" ", opts.IndentSize))
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrFileWriteError, err.Error())
	}

	return append(jsonData, '\n'), nil
}
