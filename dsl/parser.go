package dsl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/keepsake/layout"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[:;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node of a book manifest:
//
//	book "Our Memories" {
//	  from: "Alice"
//	  to: "Bob"
//	  photo "beach.jpg" { "Sunset at the beach" }
//	  photo "dinner.png"
//	}
type Document struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Title   *StringLiteral `parser:"Newline* 'book' @String?"`
	Entries []*Entry       `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`

	// BaseDir 是相对照片路径的根目录，由 ParseFile 设置。
	BaseDir string `parser:"" json:"-"`
}

// Entry is one statement inside the book block.
type Entry struct {
	Photo      *Photo      `parser:"  @@"`
	Assignment *Assignment `parser:"| @@"`
}

// Photo references an image file and an optional caption block.
type Photo struct {
	Pos     lexer.Position  `parser:"" json:"-"`
	Path    StringLiteral   `parser:"'photo' @String"`
	Caption []StringLiteral `parser:"( '{' Newline* ( @String ( ';' | Newline )* )* '}' )?"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' @@"`
}

// Value is a string, number or bare word.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Ident  *string        `parser:"| @Ident"`
}

// Text returns the value as plain text.
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// 支持的赋值键及其在封面上的含义。
var metaKeys = map[string]string{
	"title":     "title",
	"from":      "author",
	"author":    "author",
	"to":        "recipient",
	"recipient": "recipient",
}

// Parse parses a manifest from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse("", r)
	if err != nil {
		return nil, err
	}
	return doc, doc.check()
}

// ParseString parses a manifest from a string.
func ParseString(input string) (*Document, error) {
	doc, err := documentParser.ParseString("", input)
	if err != nil {
		return nil, err
	}
	return doc, doc.check()
}

// ParseFile parses the manifest at path; relative photo paths resolve against its directory.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取清单失败: %w", err)
	}
	defer f.Close()

	doc, err := documentParser.Parse(path, f)
	if err != nil {
		return nil, err
	}
	if err := doc.check(); err != nil {
		return nil, err
	}
	doc.BaseDir = filepath.Dir(path)
	return doc, nil
}

// check 拒绝未知的键、重复的键与空的照片路径。
func (d *Document) check() error {
	seen := map[string]lexer.Position{}
	for _, e := range d.Entries {
		switch {
		case e.Assignment != nil:
			a := e.Assignment
			field, ok := metaKeys[a.Key]
			if !ok {
				return fmt.Errorf("%s: 未知的设置 %q", a.Pos, a.Key)
			}
			if prev, dup := seen[field]; dup {
				return fmt.Errorf("%s: %s 重复设置（首次出现在 %s）", a.Pos, a.Key, prev)
			}
			seen[field] = a.Pos
		case e.Photo != nil:
			if strings.TrimSpace(string(e.Photo.Path)) == "" {
				return fmt.Errorf("%s: 照片路径为空", e.Photo.Pos)
			}
		}
	}
	return nil
}

// Meta returns the cover texts; unset fields stay empty and fall back to theme defaults later.
func (d *Document) Meta() layout.BookMeta {
	var m layout.BookMeta
	if d.Title != nil {
		m.Title = string(*d.Title)
	}
	for _, e := range d.Entries {
		if e.Assignment == nil {
			continue
		}
		v := e.Assignment.Value.Text()
		switch metaKeys[e.Assignment.Key] {
		case "title":
			m.Title = v
		case "author":
			m.Author = v
		case "recipient":
			m.Recipient = v
		}
	}
	return m
}

// Photos returns the photo statements in order.
func (d *Document) Photos() []*Photo {
	var out []*Photo
	for _, e := range d.Entries {
		if e.Photo != nil {
			out = append(out, e.Photo)
		}
	}
	return out
}

// Resolve returns the photo path, joined with baseDir when relative.
func (p *Photo) Resolve(baseDir string) string {
	path := string(p.Path)
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Text joins the caption lines with single spaces.
func (p *Photo) Text() string {
	parts := make([]string, len(p.Caption))
	for i, line := range p.Caption {
		parts[i] = string(line)
	}
	return strings.Join(parts, " ")
}
