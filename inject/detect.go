package inject

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// filetype needs at most that much to recognize anything it knows
const headSize = 262

func hasExtension(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

// isBinary reports whether head looks like one of the binary formats
// filetype knows about, markup is never recognized by it.
func isBinary(head []byte) bool {
	kind, err := filetype.Match(head)
	return err == nil && kind != filetype.Unknown
}

func isMarkup(r io.Reader) (bool, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return !isBinary(head[:n]), nil
}

// isHTMLFile checks file name extension and makes sure content is not
// binary.
func isHTMLFile(path string, exts []string) (bool, error) {
	if !hasExtension(path, exts) {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return isMarkup(f)
}

func isHTMLInArchive(f *zip.File, exts []string) (bool, error) {
	if !hasExtension(f.Name, exts) {
		return false, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()
	return isMarkup(r)
}

// decode returns data converted to UTF-8 together with name of the source
// encoding. When forced is nil encoding is detected the way browsers do it:
// BOM, then <meta> prescan, then UTF-8 validity.
func decode(data []byte, forced encoding.Encoding) (string, string, error) {
	enc, name := forced, ""
	if enc != nil {
		if name, _ = ianaindex.IANA.Name(enc); len(name) == 0 {
			name = "forced"
		}
	} else {
		enc, name, _ = charset.DetermineEncoding(data, "text/html")
	}
	if enc == nil || enc == encoding.Nop || name == "utf-8" {
		return string(data), "utf-8", nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("unable to decode from %s: %w", name, err)
	}
	return string(out), name, nil
}
