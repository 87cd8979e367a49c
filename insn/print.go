package insn

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Colors holds the formatting functions used when printing to a terminal.
type Colors struct {
	Label     func(string, ...any) string
	Op        func(string, ...any) string
	Directive func(string, ...any) string
	Added     func(string, ...any) string
	Removed   func(string, ...any) string
	Elided    func(string, ...any) string
	Kinds     map[Kind]func(string, ...any) string
}

func NewColors() *Colors {
	return &Colors{
		Label:     color.RGB(96, 96, 96).SprintfFunc(),
		Op:        color.RGB(196, 96, 16).SprintfFunc(),
		Directive: color.RGB(255, 0, 196).SprintfFunc(),
		Added:     color.GreenString,
		Removed:   color.RedString,
		Elided:    color.BlueString,
		Kinds: map[Kind]func(string, ...any) string{
			Int:    color.RGB(128, 216, 236).SprintfFunc(),
			Float:  color.RGB(128, 216, 236).SprintfFunc(),
			String: color.RGB(168, 0, 196).SprintfFunc(),
			Symbol: color.CyanString,
		},
	}
}

// TerminalColors returns NewColors when w is a terminal and nil otherwise.
func TerminalColors(w io.Writer) *Colors {
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewColors()
	}
	return nil
}

type PrintOption func(*Printer)

// PrintColors sets the colors; nil prints plain text.
func PrintColors(c *Colors) PrintOption {
	return func(p *Printer) { p.colors = c }
}

// PrintIndent sets the indentation of instructions inside a method.
func PrintIndent(s string) PrintOption {
	return func(p *Printer) { p.indent = s }
}

// Printer writes instructions and listings in the format read by Parse and
// ReadListing.
type Printer struct {
	w      io.Writer
	colors *Colors
	indent string
}

func NewPrinter(w io.Writer, opts ...PrintOption) *Printer {
	p := &Printer{w: w, indent: "  "}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Instr writes one instruction line.
func (p *Printer) Instr(i Instr) error {
	_, err := io.WriteString(p.w, p.format(i)+"\n")
	return err
}

// Method writes a method with its directives.
func (p *Printer) Method(m *Method) error {
	if m.Name == "" {
		return p.body(m.Body, "")
	}
	if _, err := io.WriteString(p.w, p.directive(methodDirective)+" "+m.Name+"\n"); err != nil {
		return err
	}
	if err := p.body(m.Body, p.indent); err != nil {
		return err
	}
	_, err := io.WriteString(p.w, p.directive(endDirective)+"\n")
	return err
}

// Listing writes every method, separated by blank lines.
func (p *Printer) Listing(l *Listing) error {
	for i, m := range l.Methods {
		if i > 0 {
			if _, err := io.WriteString(p.w, "\n"); err != nil {
				return err
			}
		}
		if err := p.Method(m); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) body(body []Instr, indent string) error {
	for _, i := range body {
		if _, err := io.WriteString(p.w, indent+p.format(i)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) directive(d string) string {
	if p.colors == nil {
		return d
	}
	return p.colors.Directive("%s", d)
}

func (p *Printer) format(i Instr) string {
	if p.colors == nil {
		return i.String()
	}
	var b strings.Builder
	if i.Label != "" {
		b.WriteString(p.colors.Label("%s:", i.Label))
		b.WriteByte(' ')
	}
	b.WriteString(p.colors.Op("%s", i.Op))
	if i.Arg.IsSet() {
		b.WriteByte(' ')
		arg := i.Arg.String()
		if f := p.colors.Kinds[i.Arg.Kind]; f != nil {
			arg = f("%s", arg)
		}
		b.WriteString(arg)
	}
	return b.String()
}
