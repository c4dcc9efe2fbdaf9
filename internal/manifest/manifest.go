// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest loads asset manifests: JSON documents whose "objects"
// collection maps a relative file path to the hash and size of its content.
//
//	{"objects": {"minecraft/lang/en_us.json": {"hash": "b3b1...", "size": 4096}}}
//
// Entry order follows the document, which a plain map decode would lose, so
// the loader walks the token stream.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/asset-extract/pkg/types"
)

// objectsKey is the top-level field holding the path -> entry mapping.
const objectsKey = "objects"

var (
	// ErrParse indicates the document is not well-formed JSON.
	ErrParse = errors.New("manifest is not well-formed JSON")

	// ErrShape indicates well-formed JSON that is not a manifest: the top
	// level is not an object, "objects" is not an object, or (in strict
	// mode) "objects" is absent.
	ErrShape = errors.New("unexpected manifest structure")

	// ErrInvalidEntry indicates an entry without a usable hash, size, or path,
	// including fields of the wrong JSON type.
	ErrInvalidEntry = errors.New("invalid manifest entry")
)

// Options controls how permissive the loader is.
type Options struct {
	// Strict rejects a document that has no "objects" collection. When
	// false such a document loads as an empty manifest.
	Strict bool
}

// rawEntry mirrors one value of the "objects" mapping. Pointers distinguish
// an absent field from a zero value.
type rawEntry struct {
	Hash *string      `json:"hash"`
	Size *json.Number `json:"size"`
}

// Load reads and validates the manifest at path.
func Load(path string, opts Options) (*types.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	return m, nil
}

// Decode parses a manifest document from r.
func Decode(r io.Reader, opts Options) (*types.Manifest, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrParse)
		}
		return nil, parseError(err)
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: top level is %s, want object", ErrShape, describe(tok))
	}

	m := &types.Manifest{}
	found := false
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != objectsKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, parseError(err)
			}
			continue
		}
		found = true
		entries, err := decodeObjects(dec)
		if err != nil {
			return nil, err
		}
		m.Entries = entries
	}
	if _, err := dec.Token(); err != nil {
		return nil, parseError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level object", ErrParse)
	}

	if !found && opts.Strict {
		return nil, fmt.Errorf("%w: missing %q collection", ErrShape, objectsKey)
	}
	return m, nil
}

// decodeObjects reads the "objects" value. A key seen twice keeps its first
// position and takes the later value.
func decodeObjects(dec *json.Decoder) ([]types.Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, parseError(err)
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: %q is %s, want object", ErrShape, objectsKey, describe(tok))
	}

	var entries []types.Entry
	index := make(map[string]int)
	for dec.More() {
		path, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		var raw rawEntry
		if err := dec.Decode(&raw); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, path, err)
			}
			return nil, parseError(err)
		}

		entry, err := toEntry(path, raw)
		if err != nil {
			return nil, err
		}
		if i, ok := index[path]; ok {
			entries[i] = entry
			continue
		}
		index[path] = len(entries)
		entries = append(entries, entry)
	}
	if _, err := dec.Token(); err != nil {
		return nil, parseError(err)
	}
	return entries, nil
}

func toEntry(path string, raw rawEntry) (types.Entry, error) {
	if raw.Hash == nil {
		return types.Entry{}, fmt.Errorf("%w: %s: missing hash", ErrInvalidEntry, path)
	}
	if raw.Size == nil {
		return types.Entry{}, fmt.Errorf("%w: %s: missing size", ErrInvalidEntry, path)
	}
	size, err := raw.Size.Int64()
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: %s: size %q is not an integer", ErrInvalidEntry, path, raw.Size.String())
	}

	e := types.Entry{Path: path, Hash: *raw.Hash, Size: size}
	if err := Validate(e); err != nil {
		return types.Entry{}, err
	}
	return e, nil
}

// Validate checks a single entry: the hash must be hex with at least two
// characters, the size non-negative, and the path local to the output root.
func Validate(e types.Entry) error {
	if e.Hash == "" {
		return fmt.Errorf("%w: %s: empty hash", ErrInvalidEntry, e.Path)
	}
	if len(e.Hash) < 2 {
		return fmt.Errorf("%w: %s: hash %q shorter than shard prefix", ErrInvalidEntry, e.Path, e.Hash)
	}
	if !isHex(e.Hash) {
		return fmt.Errorf("%w: %s: hash %q is not hexadecimal", ErrInvalidEntry, e.Path, e.Hash)
	}
	if e.Size < 0 {
		return fmt.Errorf("%w: %s: negative size %d", ErrInvalidEntry, e.Path, e.Size)
	}
	if !filepath.IsLocal(filepath.FromSlash(e.Path)) {
		return fmt.Errorf("%w: %q escapes the output directory", ErrInvalidEntry, e.Path)
	}
	return nil
}

// Filter returns a manifest holding only the entries whose path matches at
// least one doublestar pattern (e.g. "minecraft/sounds/**"). With no
// patterns it returns m unchanged.
func Filter(m *types.Manifest, patterns []string) (*types.Manifest, error) {
	if len(patterns) == 0 {
		return m, nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	out := &types.Manifest{}
	for _, e := range m.Entries {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, e.Path); ok {
				out.Entries = append(out.Entries, e)
				break
			}
		}
	}
	return out, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", parseError(err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected %s where a key was expected", ErrParse, describe(tok))
	}
	return key, nil
}

// parseError wraps a decoder failure. Syntax errors and truncated input are
// both reported as ErrParse.
func parseError(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %v", ErrParse, err)
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "array"
		}
		return "object"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", tok)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
