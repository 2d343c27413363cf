// Package lscolors turns an LS_COLORS environment string into terminal
// styles for listing rows. Keys are either the classifier's two-letter
// type codes or "*.ext" suffix patterns; values are semicolon-separated
// SGR codes. The parsed table is an explicit value handed to the
// renderer, nothing here touches process-global state.
package lscolors

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/treeline-tools/ddiff/pkg/fileinfo"
)

// Default mirrors the dircolors defaults applied when LS_COLORS is unset.
const Default = "rs=0:di=01;34:ln=01;36:mh=00:pi=40;33:so=01;35:do=01;35:" +
	"bd=40;33;01:cd=40;33;01:or=40;31;01:mi=02;90:su=37;41:sg=30;43:" +
	"ca=00:tw=30;42:ow=34;42:st=37;44:ex=01;32:"

// Table maps file types and name suffixes to styles.
type Table struct {
	types map[fileinfo.TypeKey]*color.Color
	exts  map[string]*color.Color
}

// Parse builds a Table from an LS_COLORS string. An empty string parses
// the Default. Unknown keys and malformed attribute lists are skipped,
// matching how ls tolerates junk in the variable.
//
// After parsing, styles are filled in two passes: type keys with a
// normal attribute fall back to the plain-file style, and keys with a
// non-normal attribute fall back to their kind's normal style. A plain
// file with no explicit entry renders unstyled.
func Parse(env string) *Table {
	if env == "" {
		env = Default
	}
	t := &Table{
		types: make(map[fileinfo.TypeKey]*color.Color),
		exts:  make(map[string]*color.Color),
	}

	codes := fileinfo.TypeCodes()
	for _, part := range strings.Split(env, ":") {
		key, attrs, ok := strings.Cut(part, "=")
		if !ok || key == "" || attrs == "" {
			continue
		}
		style, err := parseStyle(attrs)
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, "*") {
			t.exts[key[1:]] = style
			continue
		}
		if tk, ok := codes[key]; ok {
			t.types[tk] = style
		}
	}

	plain := t.types[fileinfo.TypeKey{Kind: fileinfo.KindRegular, Extra: fileinfo.ExtraNormal}]
	if plain == nil {
		plain = color.New()
		t.types[fileinfo.TypeKey{Kind: fileinfo.KindRegular, Extra: fileinfo.ExtraNormal}] = plain
	}
	for _, tk := range codes {
		if tk.Extra != fileinfo.ExtraNormal {
			continue
		}
		if _, ok := t.types[tk]; !ok {
			t.types[tk] = plain
		}
	}
	for _, tk := range codes {
		if tk.Extra == fileinfo.ExtraNormal {
			continue
		}
		if _, ok := t.types[tk]; !ok {
			t.types[tk] = t.types[fileinfo.TypeKey{Kind: tk.Kind, Extra: fileinfo.ExtraNormal}]
		}
	}
	return t
}

// Style picks the style for one side of a row. A suffix match on the
// entry name wins over the side's type style, so both sides of a *.ext
// entry render alike even when their types differ.
func (t *Table) Style(name string, tk fileinfo.TypeKey) *color.Color {
	if ext := filepath.Ext(name); ext != "" {
		if style, ok := t.exts[ext]; ok {
			return style
		}
	}
	if style, ok := t.types[tk]; ok {
		return style
	}
	return color.New()
}

// parseStyle interprets one semicolon-separated SGR attribute list.
// Recognized: the decoration codes 1 2 4 5 7 9 21, the 16-color
// foreground and background ranges including bright, and the 38/48
// extensions in both the "5;n" 256-color and "2;r;g;b" 24-bit forms.
// Other plain codes (0 among them) pass through as-is, which is how a
// reset renders too.
func parseStyle(attrs string) (*color.Color, error) {
	fields := strings.Split(attrs, ";")
	codes := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		codes[i] = n
	}

	c := color.New()
	for i := 0; i < len(codes); i++ {
		n := codes[i]
		switch {
		case n == 38 || n == 48:
			if i+1 >= len(codes) {
				return nil, strconv.ErrSyntax
			}
			switch codes[i+1] {
			case 5:
				if i+2 >= len(codes) {
					return nil, strconv.ErrSyntax
				}
				c.Add(color.Attribute(n), 5, color.Attribute(codes[i+2]))
				i += 2
			case 2:
				if i+4 >= len(codes) {
					return nil, strconv.ErrSyntax
				}
				c.Add(color.Attribute(n), 2,
					color.Attribute(codes[i+2]),
					color.Attribute(codes[i+3]),
					color.Attribute(codes[i+4]))
				i += 4
			default:
				return nil, strconv.ErrSyntax
			}
		default:
			c.Add(color.Attribute(n))
		}
	}
	return c, nil
}
