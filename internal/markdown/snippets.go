package markdown

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxSnippetDepth = 4

var (
	snippetLine  = regexp.MustCompile(`^([ \t]*)-{1,}8<-{1,}[ \t]+(?:"([^"]+)"|'([^']+)')[ \t]*$`)
	snippetFence = regexp.MustCompile(`^[ \t]*-{1,}8<-{1,}[ \t]*$`)
)

// snippets expands `--8<-- "file"` include lines.
type snippets struct {
	basePaths  []string
	checkPaths bool
}

// expand returns src with includes resolved. Missing files are reported as
// warnings unless checkPaths is set, in which case they are an error.
func (s *snippets) expand(src []byte, depth int) ([]byte, []string, error) {
	if depth > maxSnippetDepth || !bytes.Contains(src, []byte("8<")) {
		return src, nil, nil
	}
	var (
		out      bytes.Buffer
		warnings []string
		inBlock  bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if snippetFence.MatchString(line) {
			inBlock = !inBlock
			continue
		}
		indent, name := "", ""
		switch {
		case inBlock:
			name = strings.TrimSpace(line)
			if name == "" || strings.HasPrefix(name, ";") {
				continue
			}
		default:
			m := snippetLine.FindStringSubmatch(line)
			if m == nil {
				out.WriteString(line)
				out.WriteByte('\n')
				continue
			}
			indent, name = m[1], m[2]+m[3]
		}
		// A leading ";" comments the include out.
		if strings.HasPrefix(name, ";") {
			continue
		}
		content, err := s.read(name)
		if err != nil {
			if s.checkPaths {
				return nil, warnings, err
			}
			warnings = append(warnings, err.Error())
			continue
		}
		nested, more, err := s.expand(content, depth+1)
		warnings = append(warnings, more...)
		if err != nil {
			return nil, warnings, err
		}
		for _, l := range strings.SplitAfter(strings.TrimRight(string(nested), "\n"), "\n") {
			out.WriteString(indent)
			out.WriteString(strings.TrimRight(l, "\n"))
			out.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, err
	}
	return out.Bytes(), warnings, nil
}

func (s *snippets) read(name string) ([]byte, error) {
	for _, base := range s.basePaths {
		p := filepath.Join(base, filepath.FromSlash(name))
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("snippet %q not found in base paths", name)
}
