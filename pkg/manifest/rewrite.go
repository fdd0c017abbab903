package manifest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// RewriteID replaces the id of the manifest at src with id and writes the result to dst.
// Everything else in the document, comments included, is preserved. When src and dst
// differ, src is removed after dst has been written.
func RewriteID(src, dst, id string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", src, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(errors.ErrFormat, "failed to decode manifest %s: %v", src, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return errors.Wrapf(errors.ErrFormat, "manifest %s is not a mapping", src)
	}

	root := doc.Content[0]
	replaced := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "id" {
			root.Content[i+1].Value = id
			root.Content[i+1].Tag = "!!str"
			replaced = true
			break
		}
	}
	if !replaced {
		return errors.Wrapf(errors.ErrFormat, "manifest %s has no id", src)
	}

	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	// On case-insensitive filesystems src and dst name the same file.
	sameFile := src != dst && strings.EqualFold(src, dst)
	if sameFile {
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("failed to remove manifest %s: %w", src, err)
		}
	}
	if err := fsutil.WriteFileAtomic(dst, buf.Bytes(), fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", dst, err)
	}
	if src != dst && !sameFile {
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove manifest %s: %w", src, err)
		}
	}
	return nil
}
