// Package manifest maintains the per-application compose file.
//
// The file is shared with developers, so edits are strictly additive:
// yaml.v3 is used only to locate top-level sections and service keys by
// line, and new blocks are spliced in as text. Existing lines, comments and
// ordering are never re-encoded.
package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultIndent = 2

// section is a top-level key and the line range it owns.
type section struct {
	key   string
	start int // index of the key line
	end   int // index after the last content line
	value *yaml.Node
	// indent is the column offset of the first entry, zero when the
	// section has no block entries yet.
	indent int
}

// Document is an ordered, line-preserving model of a compose file.
type Document struct {
	lines           []string
	newline         string
	trailingNewline bool

	sections []section
	services []string
	volumes  map[string]bool
	networks map[string]bool
	indent   int
}

// Parse builds a Document from raw file content. Empty input is valid.
func Parse(data []byte) (*Document, error) {
	d := &Document{newline: "\n", trailingNewline: true}
	if bytes.Contains(data, []byte("\r\n")) {
		d.newline = "\r\n"
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text != "" {
		d.trailingNewline = strings.HasSuffix(text, "\n")
		d.lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}

	if err := d.reindex(); err != nil {
		return nil, err
	}
	return d, nil
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	if len(d.lines) == 0 {
		return nil
	}
	out := strings.Join(d.lines, d.newline)
	if d.trailingNewline {
		out += d.newline
	}
	return []byte(out)
}

// Services lists service names in file order.
func (d *Document) Services() []string {
	out := make([]string, len(d.services))
	copy(out, d.services)
	return out
}

// HasService reports whether a service key already exists.
func (d *Document) HasService(name string) bool {
	for _, s := range d.services {
		if s == name {
			return true
		}
	}
	return false
}

// HasVolume reports whether a top-level named volume exists.
func (d *Document) HasVolume(name string) bool { return d.volumes[name] }

// HasNetwork reports whether a top-level network exists.
func (d *Document) HasNetwork(name string) bool { return d.networks[name] }

// Indent is the indentation width used by the file's services mapping.
func (d *Document) Indent() int { return d.indent }

// AddService appends a rendered service block (lines without the leading
// services-level indentation) at the end of the services section, creating
// the section before volumes/networks when it is missing.
func (d *Document) AddService(name string, block []string) error {
	if d.HasService(name) {
		return nil
	}
	at, err := d.entryInsertPoint("services", "volumes", "networks")
	if err != nil {
		return err
	}
	d.insert(at, d.indentLines(block))
	return d.reindex()
}

// AddVolume declares a named local volume if absent.
func (d *Document) AddVolume(name string) error {
	if d.HasVolume(name) {
		return nil
	}
	at, err := d.entryInsertPoint("volumes", "networks")
	if err != nil {
		return err
	}
	n := d.sectionIndent("volumes")
	d.insert(at, indentBy(n, []string{name + ":", pad(n) + "driver: local"}))
	return d.reindex()
}

// AddNetwork declares a bridge network if absent.
func (d *Document) AddNetwork(name string) error {
	if d.HasNetwork(name) {
		return nil
	}
	at, err := d.entryInsertPoint("networks")
	if err != nil {
		return err
	}
	n := d.sectionIndent("networks")
	d.insert(at, indentBy(n, []string{name + ":", pad(n) + "driver: bridge"}))
	return d.reindex()
}

// entryInsertPoint returns the line index where a new entry of section key
// belongs. A missing section is created in front of the first existing
// section named in before, or at the end of the file.
func (d *Document) entryInsertPoint(key string, before ...string) (int, error) {
	if s, ok := d.section(key); ok {
		if err := d.openSection(s); err != nil {
			return 0, err
		}
		s, _ = d.section(key)
		return s.end, nil
	}

	at := len(d.lines)
	for _, b := range before {
		if s, ok := d.section(b); ok {
			at = d.leadingCommentStart(s.start)
			break
		}
	}
	d.insert(at, []string{key + ":"})
	if err := d.reindex(); err != nil {
		return 0, err
	}
	return at + 1, nil
}

// openSection rewrites an empty flow mapping ("services: {}") to block style
// so entries can be appended. Non-empty flow mappings are rejected.
func (d *Document) openSection(s section) error {
	v := s.value
	if v == nil || v.Kind != yaml.MappingNode || v.Style&yaml.FlowStyle == 0 {
		if v != nil && v.Kind != yaml.MappingNode && !isNull(v) {
			return fmt.Errorf("top-level %q is not a mapping", s.key)
		}
		return nil
	}
	if len(v.Content) > 0 {
		return fmt.Errorf("flow-style %q mapping cannot be extended in place", s.key)
	}
	line := d.lines[s.start]
	idx := strings.Index(line, "{")
	if idx < 0 {
		return fmt.Errorf("cannot locate flow mapping for %q", s.key)
	}
	d.lines[s.start] = strings.TrimRight(line[:idx], " ")
	return d.reindex()
}

// leadingCommentStart walks back over comment lines directly above a
// top-level key so a new section does not split a comment from its key.
func (d *Document) leadingCommentStart(i int) int {
	for i > 0 && strings.HasPrefix(d.lines[i-1], "#") {
		i--
	}
	return i
}

func (d *Document) insert(at int, lines []string) {
	out := make([]string, 0, len(d.lines)+len(lines))
	out = append(out, d.lines[:at]...)
	out = append(out, lines...)
	out = append(out, d.lines[at:]...)
	d.lines = out
}

func (d *Document) indentLines(block []string) []string {
	return indentBy(d.indent, block)
}

// sectionIndent is the entry indentation of a top-level section, or the
// services indentation when the section is empty or missing.
func (d *Document) sectionIndent(key string) int {
	if s, ok := d.section(key); ok && s.indent > 0 {
		return s.indent
	}
	return d.indent
}

func indentBy(n int, block []string) []string {
	out := make([]string, len(block))
	for i, l := range block {
		if l == "" {
			out[i] = l
			continue
		}
		out[i] = pad(n) + l
	}
	return out
}

func (d *Document) section(key string) (section, bool) {
	for _, s := range d.sections {
		if s.key == key {
			return s, true
		}
	}
	return section{}, false
}

// reindex re-parses the current lines and recomputes section ranges.
func (d *Document) reindex() error {
	d.sections = nil
	d.services = nil
	d.volumes = map[string]bool{}
	d.networks = map[string]bool{}
	if d.indent == 0 {
		d.indent = defaultIndent
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(d.lines, "\n")), &root); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil
	}
	top := root.Content[0]
	if isNull(top) {
		return nil
	}
	if top.Kind != yaml.MappingNode {
		return fmt.Errorf("parse manifest: top level is not a mapping")
	}
	if top.Style&yaml.FlowStyle != 0 {
		return fmt.Errorf("parse manifest: flow-style documents are not supported")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		boundary := len(d.lines)
		if i+2 < len(top.Content) {
			boundary = top.Content[i+2].Line - 1
			boundary = d.leadingCommentStart(boundary)
		}
		indent := 0
		if value.Kind == yaml.MappingNode && value.Style&yaml.FlowStyle == 0 && len(value.Content) > 0 {
			indent = value.Content[0].Column - 1
		}
		d.sections = append(d.sections, section{
			key:    key.Value,
			start:  key.Line - 1,
			end:    d.contentEnd(key.Line-1, boundary),
			value:  value,
			indent: indent,
		})
	}

	if s, ok := d.section("services"); ok && s.value.Kind == yaml.MappingNode {
		if s.indent > 0 {
			d.indent = s.indent
		}
		for i := 0; i+1 < len(s.value.Content); i += 2 {
			d.services = append(d.services, s.value.Content[i].Value)
		}
	}
	for key, set := range map[string]map[string]bool{"volumes": d.volumes, "networks": d.networks} {
		if s, ok := d.section(key); ok && s.value.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(s.value.Content); i += 2 {
				set[s.value.Content[i].Value] = true
			}
		}
	}
	return nil
}

// contentEnd trims trailing blank lines and top-level comments from the
// range [start, boundary) and returns the index after the last content line.
func (d *Document) contentEnd(start, boundary int) int {
	end := boundary
	for end > start+1 {
		l := d.lines[end-1]
		if strings.TrimSpace(l) == "" || strings.HasPrefix(l, "#") {
			end--
			continue
		}
		break
	}
	return end
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "")
}

func pad(n int) string {
	return strings.Repeat(" ", n)
}
