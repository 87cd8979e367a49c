package insn

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	methodDirective = ".method"
	endDirective    = ".end"
)

// Method is a named instruction body.
type Method struct {
	Name string
	Body []Instr
}

// Listing is a sequence of methods. A listing without .method directives
// holds a single method with an empty name.
type Listing struct {
	Methods []*Method
}

// Method returns the method called name, or nil.
func (l *Listing) Method(name string) *Method {
	for _, m := range l.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Bare reports whether the listing was written without method directives.
func (l *Listing) Bare() bool {
	return len(l.Methods) == 1 && l.Methods[0].Name == ""
}

// ItemKind distinguishes the items produced by a Scanner.
type ItemKind int

const (
	ItemInstr ItemKind = iota
	ItemBegin
	ItemEnd
)

// Item is one significant line of a listing.
type Item struct {
	Kind   ItemKind
	Line   int
	Method string
	Instr  Instr
}

// Scanner reads a listing line by line, skipping blank and comment-only
// lines.
type Scanner struct {
	sc     *bufio.Scanner
	line   int
	method string
	open   bool
	item   Item
	err    error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{sc: bufio.NewScanner(r)}
}

// Next advances to the next item, returning false at the end of input or on
// error.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(stripComment(s.sc.Text()))
		if text == "" {
			continue
		}
		head, rest := cut(text)
		switch head {
		case methodDirective:
			if s.open {
				return s.fail("%s %q inside method %q", methodDirective, rest, s.method)
			}
			if rest == "" {
				return s.fail("%s without a name", methodDirective)
			}
			s.open = true
			s.method = rest
			s.item = Item{Kind: ItemBegin, Line: s.line, Method: rest}
			return true
		case endDirective:
			if !s.open {
				return s.fail("%s outside of a method", endDirective)
			}
			s.open = false
			s.item = Item{Kind: ItemEnd, Line: s.line, Method: s.method}
			return true
		}
		i, err := Parse(text)
		if err != nil {
			return s.fail("%s", err.Error())
		}
		s.item = Item{Kind: ItemInstr, Line: s.line, Method: s.method, Instr: i}
		return true
	}
	if err := s.sc.Err(); err != nil {
		s.err = err
		return false
	}
	if s.open {
		return s.fail("method %q not closed with %s", s.method, endDirective)
	}
	return false
}

func (s *Scanner) fail(format string, args ...any) bool {
	s.err = &SyntaxError{Line: s.line, Msg: fmt.Sprintf(format, args...)}
	return false
}

// Item returns the item read by the last call to Next.
func (s *Scanner) Item() Item {
	return s.item
}

func (s *Scanner) Err() error {
	return s.err
}

// ReadListing reads a whole listing. Instructions before the first
// .method directive form a method with an empty name, which is only allowed
// when the listing has no directives at all.
func ReadListing(r io.Reader) (*Listing, error) {
	s := NewScanner(r)
	res := &Listing{}
	var (
		cur  *Method
		bare *Method
	)
	for s.Next() {
		it := s.Item()
		switch it.Kind {
		case ItemBegin:
			if bare != nil {
				return nil, &SyntaxError{Line: it.Line, Msg: "instructions outside of a method"}
			}
			if res.Method(it.Method) != nil {
				return nil, &SyntaxError{Line: it.Line, Msg: fmt.Sprintf("duplicate method %q", it.Method)}
			}
			cur = &Method{Name: it.Method}
			res.Methods = append(res.Methods, cur)
		case ItemEnd:
			cur = nil
		case ItemInstr:
			if cur == nil {
				if len(res.Methods) != 0 && bare == nil {
					return nil, &SyntaxError{Line: it.Line, Msg: "instructions outside of a method"}
				}
				if bare == nil {
					bare = &Method{}
					res.Methods = append(res.Methods, bare)
				}
				bare.Body = append(bare.Body, it.Instr)
				continue
			}
			cur.Body = append(cur.Body, it.Instr)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteTo writes the listing without colors.
func (l *Listing) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	err := NewPrinter(cw).Listing(l)
	return cw.n, err
}

// String renders the listing as text.
func (l *Listing) String() string {
	var b strings.Builder
	l.WriteTo(&b)
	return b.String()
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
