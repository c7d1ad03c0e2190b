// Package storage reads entry lists and reads and writes verification
// results as JSON and JSONL files.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matsen/bibcheck/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ErrEmptyInput is returned when an entry file holds no data.
var ErrEmptyInput = errors.New("no entries in input")

// LoadEntries reads entries from path, or from stdin when path is "-".
// The file may be a CSL-JSON array or one CSL-JSON object per line.
func LoadEntries(path string) ([]reference.Entry, error) {
	data, err := ReadInput(path)
	if err != nil {
		return nil, err
	}
	return DecodeEntries(data)
}

// ReadInput returns the bytes of path, or of stdin when path is "-".
func ReadInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entries file: %w", err)
	}
	return data, nil
}

// DecodeEntries parses a CSL-JSON array or JSONL.
func DecodeEntries(data []byte) ([]reference.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyInput
	}

	if trimmed[0] == '[' {
		var entries []reference.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("parsing CSL-JSON array: %w", err)
		}
		return entries, nil
	}

	return readJSONL[reference.Entry](bytes.NewReader(trimmed))
}

// ReadResults reads verification results from a JSONL file.
func ReadResults(path string) ([]reference.VerificationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file reads as no results
		}
		return nil, fmt.Errorf("opening results file: %w", err)
	}
	defer f.Close()

	return readJSONL[reference.VerificationResult](f)
}

// WriteResults writes results to a JSONL file, replacing existing content.
func WriteResults(path string, results []reference.VerificationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	return writeJSONL(f, results)
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readJSONL[T any](r io.Reader) ([]T, error) {
	var out []T
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		out = append(out, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}

	return out, nil
}

func writeJSONL[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}
