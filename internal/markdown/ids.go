package markdown

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// HeadingIDs generates heading ids that stay unique across several Render
// calls sharing it, such as the markdown cells of one notebook. Duplicates
// get a numeric suffix (`setup`, `setup-1`, ...).
type HeadingIDs struct {
	seen map[string]bool
}

var _ parser.IDs = (*HeadingIDs)(nil)

// NewHeadingIDs returns an empty id set.
func NewHeadingIDs() *HeadingIDs {
	return &HeadingIDs{seen: map[string]bool{}}
}

// Generate implements parser.IDs.
func (s *HeadingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	value = util.TrimRightSpace(util.TrimLeftSpace(value))
	slug := make([]byte, 0, len(value))
	for i := 0; i < len(value); {
		c := value[i]
		l := util.UTF8Len(c)
		i += int(l)
		if l != 1 {
			continue
		}
		switch {
		case util.IsAlphaNumeric(c):
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			slug = append(slug, c)
		case util.IsSpace(c) || c == '-' || c == '_':
			slug = append(slug, '-')
		}
	}
	if len(slug) == 0 {
		if kind == ast.KindHeading {
			slug = []byte("heading")
		} else {
			slug = []byte("id")
		}
	}
	base := string(slug)
	if !s.seen[base] {
		s.seen[base] = true
		return slug
	}
	for i := 1; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !s.seen[candidate] {
			s.seen[candidate] = true
			return []byte(candidate)
		}
	}
}

// Put implements parser.IDs.
func (s *HeadingIDs) Put(value []byte) {
	s.seen[string(value)] = true
}
