package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/jsonc"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ParseJSONC unmarshals the JSON with comments data in r into v.
// The data is expected as UTF-8, unless it starts with a UTF-8 or UTF-16 byte order mark.
func ParseJSONC(r io.Reader, v any) error {
	// Read the entire content first to check for errors even if valid json is first.
	buf, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return fmt.Errorf("error reading from io.Reader: %v", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(buf), v); err != nil {
		return fmt.Errorf("couldn't parse JSON: %v", err)
	}
	return nil
}

// ReadJSONCFile opens path and parses it with ParseJSONC.
func ReadJSONCFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return ParseJSONC(f, v)
}
