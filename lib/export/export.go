// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/codec"
)

// Format is an encoding selected by file extension.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	CBOR Format = "cbor"
)

// ErrUnknownFormat is returned for extensions with no encoder.
var ErrUnknownFormat = errors.New("export: unknown format")

// Entry is one listed row with its object id.
type Entry struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	areasearch.Row `yaml:",inline"`
}

// Snapshot is the result list at one moment.
type Snapshot struct {
	Region  string            `json:"region" yaml:"region"`
	TakenAt time.Time         `json:"taken_at" yaml:"taken_at"`
	Status  areasearch.Status `json:"status" yaml:"status"`
	Rows    []Entry           `json:"rows" yaml:"rows"`
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("export: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("export: zstd decoder initialization failed: " + err.Error())
	}
}

// FormatFor returns the format for path and whether it is
// zstd-compressed.
func FormatFor(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := false
	if trimmed, ok := strings.CutSuffix(name, ".zst"); ok {
		name, compressed = trimmed, true
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return YAML, compressed, nil
	case ".json":
		return JSON, compressed, nil
	case ".cbor":
		return CBOR, compressed, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Encode renders snapshot in format.
func Encode(snapshot Snapshot, format Format) ([]byte, error) {
	switch format {
	case YAML:
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(snapshot); err != nil {
			return nil, fmt.Errorf("export: encoding yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("export: encoding yaml: %w", err)
		}
		return buf.Bytes(), nil
	case JSON:
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: encoding json: %w", err)
		}
		return append(data, '\n'), nil
	case CBOR:
		data, err := codec.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("export: encoding cbor: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode parses data written by Encode.
func Decode(data []byte, format Format) (Snapshot, error) {
	var snapshot Snapshot
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &snapshot)
	case JSON:
		err = json.Unmarshal(data, &snapshot)
	case CBOR:
		err = codec.Unmarshal(data, &snapshot)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("export: decoding %s: %w", format, err)
	}
	return snapshot, nil
}

// Write encodes snapshot by the extension of path and writes it
// atomically.
func Write(path string, snapshot Snapshot) error {
	format, compressed, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(snapshot, format)
	if err != nil {
		return err
	}
	if compressed {
		data = zstdEncoder.EncodeAll(data, nil)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("export: creating temp file: %w", err)
	}
	defer os.Remove(temp.Name())
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	if err := temp.Chmod(0o644); err != nil {
		temp.Close()
		return fmt.Errorf("export: setting mode of %s: %w", path, err)
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return fmt.Errorf("export: syncing %s: %w", path, err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	if err := os.Rename(temp.Name(), path); err != nil {
		return fmt.Errorf("export: renaming into %s: %w", path, err)
	}
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read loads a snapshot written by Write.
func Read(path string) (Snapshot, error) {
	format, compressed, err := FormatFor(path)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export: reading %s: %w", path, err)
	}
	if compressed {
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return Snapshot{}, fmt.Errorf("export: zstd decompress %s: %w", path, err)
		}
	}
	return Decode(data, format)
}
