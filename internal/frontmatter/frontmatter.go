// Package frontmatter extracts the YAML meta block at the top of a page.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// meta delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml meta start delimiter found but closing delimiter is missing")

// Split separates YAML meta (`---` opened, `---` or `...` closed) from the
// Markdown body. If the document does not start with a delimiter, had is false
// and body is the full input.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	for _, closer := range []string{"---", "..."} {
		if bytes.HasPrefix(content[start:], []byte(closer+nl)) {
			return []byte{}, content[start+len(closer)+len(nl):], true, nil
		}
	}

	best := -1
	var closeLen int
	for _, closer := range []string{"---", "..."} {
		seq := []byte(nl + closer + nl)
		if idx := bytes.Index(content[start:], seq); idx >= 0 && (best < 0 || idx < best) {
			best, closeLen = idx, len(seq)
		}
		// A closing delimiter on the final line without a trailing newline.
		tail := []byte(nl + closer)
		if bytes.HasSuffix(content, tail) {
			idx := len(content) - len(tail) - start
			if idx >= 0 && (best < 0 || idx < best) {
				best, closeLen = idx, len(tail)
			}
		}
	}
	if best < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	metaEnd := start + best + len(nl)
	bodyStart := start + best + closeLen
	return content[start:metaEnd], content[bodyStart:], true, nil
}

// ParseYAML parses raw YAML meta (without delimiters) into a map.
func ParseYAML(meta []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(meta)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// Join reassembles a document from YAML meta and body using `---` delimiters.
// An empty meta yields the body unchanged.
func Join(meta []byte, body []byte) []byte {
	if len(meta) == 0 {
		return body
	}
	nl := detectNewline(meta)
	var buf bytes.Buffer
	buf.Grow(len(meta) + len(body) + 8)
	buf.WriteString("---" + nl)
	buf.Write(meta)
	if !bytes.HasSuffix(meta, []byte(nl)) {
		buf.WriteString(nl)
	}
	buf.WriteString("---" + nl)
	buf.Write(body)
	return buf.Bytes()
}
