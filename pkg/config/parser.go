package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Format names a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Parse decodes a configuration document of the given format.
// Defaults are applied to the result.
func Parse(format Format, data []byte) (Data, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatTOML:
		return ParseTOML(data)
	case FormatJSON:
		return ParseJSON(data)
	default:
		return Data{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseFile reads and decodes a configuration file.
func ParseFile(path string) (Data, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Data{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read file: %w", err)
	}
	parsed, err := Parse(format, data)
	if err != nil {
		return Data{}, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// ParseYAML decodes a YAML document.
func ParseYAML(data []byte) (Data, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Data{}, nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Data{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return decodeDocument(doc)
}

// ParseTOML decodes a TOML document.
func ParseTOML(data []byte) (Data, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Data{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return decodeDocument(doc)
}

// ParseJSON decodes a JSON document.
func ParseJSON(data []byte) (Data, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Data{}, nil
	}
	if !gjson.ValidBytes(data) {
		return Data{}, errors.New("failed to parse JSON: invalid document")
	}
	if err := ValidateJSON(data); err != nil {
		return Data{}, err
	}
	doc, ok := gjson.ParseBytes(data).Value().(map[string]any)
	if !ok {
		return Data{}, errors.New("failed to parse JSON: top level must be an object")
	}
	return decode(doc)
}

func decodeDocument(doc map[string]any) (Data, error) {
	if doc == nil {
		return Data{}, nil
	}
	if err := ValidateDocument(doc); err != nil {
		return Data{}, err
	}
	return decode(doc)
}

func decode(doc map[string]any) (Data, error) {
	var data Data
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &data,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			stringToFieldsHook,
		),
	})
	if err != nil {
		return Data{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return Data{}, fmt.Errorf("failed to decode records: %w", err)
	}
	data.ApplyDefaults()
	return data, nil
}

// stringToFieldsHook lets list fields be written as a space separated string,
// so `keys: "g g"` decodes to ["g", "g"].
func stringToFieldsHook(from reflect.Type, to reflect.Type, value any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
		return value, nil
	}
	return strings.Fields(value.(string)), nil
}

// MarshalYAML encodes data as a YAML document.
func MarshalYAML(data Data) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}
