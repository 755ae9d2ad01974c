package fileserver

import (
	_ "embed"
	"fmt"
	"mime"
	"path"

	"github.com/BurntSushi/toml"
)

// defaultContentType is used for files whose extension has no known type.
const defaultContentType = "application/octet-stream"

//go:embed mimetypes.toml
var mimeTable string

// mimeTableFile mirrors the layout of mimetypes.toml.
type mimeTableFile struct {
	Types map[string]string `toml:"types"`
}

func init() {
	if err := registerTypes(mimeTable); err != nil {
		panic(err)
	}
}

// registerTypes decodes a MIME table and registers each extension with the
// mime package.
func registerTypes(data string) error {
	var table mimeTableFile
	if _, err := toml.Decode(data, &table); err != nil {
		return fmt.Errorf("decode MIME table: %w", err)
	}
	for ext, typ := range table.Types {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			return fmt.Errorf("register MIME type %s for %s: %w", typ, ext, err)
		}
	}
	return nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return defaultContentType
}
