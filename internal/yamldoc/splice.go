package yamldoc

import (
	"bytes"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// splicer re-emits an edited tree against the text it was parsed from. Every
// map entry or sequence item whose subtree is unchanged is copied from the
// source lines; only changed scalars are rewritten in place and only new or
// restructured entries go through the encoder.
type splicer struct {
	lines  []string
	indent int
}

// span is an inclusive 1-based line range.
type span struct{ start, end int }

func (sp span) empty() bool { return sp.end < sp.start }

// splice renders the current tree by editing the source text. ok is false
// when the tree cannot be spliced, or when the spliced text would not read
// back as the current tree.
func (d *Document) splice() ([]byte, bool) {
	if d.orig == nil || len(d.src) == 0 {
		return nil, false
	}
	o, n := d.orig.Content[0], d.Root()
	if !isBlock(o, yaml.MappingNode) || !isBlock(n, yaml.MappingNode) {
		return nil, false
	}

	text := string(d.src)
	newline := strings.HasSuffix(text, "\n")
	s := &splicer{
		lines:  strings.Split(strings.TrimSuffix(text, "\n"), "\n"),
		indent: d.indent,
	}
	body, first, ok := s.mapBody(n, o, span{1, len(s.lines)})
	if !ok {
		return nil, false
	}
	out := append(slices.Clone(s.lines[:first-1]), body...)
	for n := len(blankTail(out)); n > len(blankTail(s.lines)); n-- {
		out = out[:len(out)-1]
	}
	res := strings.Join(out, "\n")
	if newline {
		res += "\n"
	}

	var back yaml.Node
	if err := yaml.Unmarshal([]byte(res), &back); err != nil || len(back.Content) == 0 {
		return nil, false
	}
	if !sameValue(back.Content[0], n) {
		return nil, false
	}
	return []byte(res), true
}

func isBlock(n *yaml.Node, kind yaml.Kind) bool {
	return n != nil && n.Kind == kind && n.Style&yaml.FlowStyle == 0 && len(n.Content) > 0
}

func (s *splicer) line(n int) string { return s.lines[n-1] }

func (s *splicer) copyLines(sp span) []string {
	if sp.empty() {
		return nil
	}
	return slices.Clone(s.lines[sp.start-1 : sp.end])
}

// withLine returns a splicer whose source has line n replaced.
func (s *splicer) withLine(n int, text string) *splicer {
	c := *s
	c.lines = slices.Clone(s.lines)
	c.lines[n-1] = text
	return &c
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// entryStart moves an entry's first line up over the comment block directly
// above it, without crossing min.
func (s *splicer) entryStart(line, min int) int {
	for line-1 >= min && isComment(s.line(line-1)) {
		line--
	}
	return line
}

// spans assigns each entry the lines from its start up to the next entry's
// start; the last entry runs to the end of outer.
func (s *splicer) spans(lines []int, outer span) ([]span, bool) {
	out := make([]span, len(lines))
	prev := outer.start - 1
	for i, l := range lines {
		if l < outer.start || l > outer.end {
			return nil, false
		}
		if l <= prev {
			return nil, false
		}
		start := max(s.entryStart(l, outer.start), prev+1)
		out[i].start = start
		prev = l
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].end = out[i+1].start - 1
		} else {
			out[i].end = outer.end
		}
	}
	return out, true
}

// trimTail splits the trailing blank lines off sp.
func (s *splicer) trimTail(sp span) (span, []string) {
	end := sp.end
	for end > sp.start && isBlank(s.line(end)) {
		end--
	}
	return span{sp.start, end}, s.copyLines(span{end + 1, sp.end})
}

func blankTail(lines []string) []string {
	i := len(lines)
	for i > 0 && isBlank(lines[i-1]) {
		i--
	}
	return lines[i:]
}

// mapBody renders the entries of n, a new version of the block mapping o
// whose entries lie inside outer. It returns the rendered lines and the line
// where o's first entry starts; lines of outer before that belong to the
// caller.
func (s *splicer) mapBody(n, o *yaml.Node, outer span) ([]string, int, bool) {
	if !isBlock(n, yaml.MappingNode) {
		return nil, 0, false
	}
	keyLines := make([]int, 0, len(o.Content)/2)
	for i := 0; i+1 < len(o.Content); i += 2 {
		keyLines = append(keyLines, o.Content[i].Line)
	}
	spans, ok := s.spans(keyLines, outer)
	if !ok {
		return nil, 0, false
	}
	last := len(spans) - 1
	var tail []string
	spans[last], tail = s.trimTail(spans[last])
	col := o.Content[0].Column - 1

	var out []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		j := matchKey(o, k)
		if j < 0 {
			lines, ok := s.fresh(&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{k, v}}, col, nil)
			if !ok {
				return nil, 0, false
			}
			out = append(out, lines...)
			continue
		}
		lines, ok := s.pair(k, v, o.Content[2*j], o.Content[2*j+1], spans[j], col)
		if !ok {
			return nil, 0, false
		}
		out = append(out, lines...)
	}
	return append(out, tail...), spans[0].start, true
}

// matchKey returns the entry index of o that k was copied from: the key node
// at the same source position, or else the key with the same text.
func matchKey(o, k *yaml.Node) int {
	if k.Line > 0 {
		for i := 0; i+1 < len(o.Content); i += 2 {
			if ok := o.Content[i]; ok.Line == k.Line && ok.Column == k.Column {
				return i / 2
			}
		}
	}
	for i := 0; i+1 < len(o.Content); i += 2 {
		if o.Content[i].Value == k.Value {
			return i / 2
		}
	}
	return -1
}

// pair renders the entry k: v whose original ko: vo occupies sp.
func (s *splicer) pair(k, v, ko, vo *yaml.Node, sp span, col int) ([]string, bool) {
	chunk := s.copyLines(sp)
	if nodeEqual(k, ko) && nodeEqual(v, vo) {
		return chunk, true
	}
	tail := blankTail(chunk)
	if !nodeEqual(k, ko) && !s.replaceToken(chunk, sp.start, ko, k, true) {
		return s.fresh(&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{k, v}}, col, tail)
	}
	if nodeEqual(v, vo) {
		return chunk, true
	}
	if vo.Line == ko.Line && s.replaceToken(chunk, sp.start, vo, v, false) {
		return chunk, true
	}
	if vo.Line > ko.Line {
		if lines, done := s.nested(chunk, v, vo, span{ko.Line, sp.end}, sp.start); done {
			return lines, true
		}
	}
	return s.fresh(&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{k, v}}, col, tail)
}

// nested renders a block collection that starts below its header line. The
// header lines come from chunk, which holds the entry's source from base on
// and may already carry an edited key.
func (s *splicer) nested(chunk []string, v, ov *yaml.Node, outer span, base int) ([]string, bool) {
	var (
		body  []string
		first int
		ok    bool
	)
	switch {
	case isBlock(ov, yaml.MappingNode):
		body, first, ok = s.mapBody(v, ov, outer)
	case isBlock(ov, yaml.SequenceNode):
		body, first, ok = s.seqBody(v, ov, outer)
	}
	if !ok || first-base > len(chunk) {
		return nil, false
	}
	return append(slices.Clone(chunk[:first-base]), body...), true
}

// dashPos finds the "-" indicator of a block sequence item.
func (s *splicer) dashPos(item *yaml.Node) (line, col int, ok bool) {
	if item.Line < 1 || item.Line > len(s.lines) {
		return 0, 0, false
	}
	r := []rune(s.line(item.Line))
	if c := item.Column - 1; c <= len(r) {
		prefix := strings.TrimRight(string(r[:c]), " ")
		if strings.HasSuffix(prefix, "-") {
			return item.Line, len([]rune(prefix)) - 1, true
		}
	}
	for l := item.Line - 1; l >= 1; l-- {
		text := s.line(l)
		if isBlank(text) || isComment(text) {
			continue
		}
		if strings.TrimSpace(text) == "-" {
			return l, strings.Index(text, "-"), true
		}
		break
	}
	return 0, 0, false
}

// seqBody is mapBody for block sequences.
func (s *splicer) seqBody(n, o *yaml.Node, outer span) ([]string, int, bool) {
	if !isBlock(n, yaml.SequenceNode) {
		return nil, 0, false
	}
	dashLines := make([]int, len(o.Content))
	col := -1
	for i, it := range o.Content {
		l, c, ok := s.dashPos(it)
		if !ok {
			return nil, 0, false
		}
		dashLines[i] = l
		if col < 0 {
			col = c
		}
	}
	spans, ok := s.spans(dashLines, outer)
	if !ok {
		return nil, 0, false
	}
	last := len(spans) - 1
	var tail []string
	spans[last], tail = s.trimTail(spans[last])

	var out []string
	for _, v := range n.Content {
		j := matchItem(o, v)
		if j < 0 {
			lines, ok := s.fresh(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{v}}, col, nil)
			if !ok {
				return nil, 0, false
			}
			out = append(out, lines...)
			continue
		}
		lines, ok := s.item(v, o.Content[j], spans[j], dashLines[j], col)
		if !ok {
			return nil, 0, false
		}
		out = append(out, lines...)
	}
	return append(out, tail...), spans[0].start, true
}

// matchItem returns the index of the item of o that v was copied from: the
// item at the same source position, or else an equal item.
func matchItem(o, v *yaml.Node) int {
	if v.Line > 0 {
		for i, it := range o.Content {
			if it.Line == v.Line && it.Column == v.Column {
				return i
			}
		}
	}
	for i, it := range o.Content {
		if nodeEqual(it, v) {
			return i
		}
	}
	return -1
}

// item renders the sequence item v whose original ov occupies sp, with its
// indicator on line dash.
func (s *splicer) item(v, ov *yaml.Node, sp span, dash, col int) ([]string, bool) {
	chunk := s.copyLines(sp)
	if nodeEqual(v, ov) {
		return chunk, true
	}
	tail := blankTail(chunk)
	if ov.Line == dash && s.replaceToken(chunk, sp.start, ov, v, false) {
		return chunk, true
	}
	if isBlock(ov, yaml.MappingNode) && ov.Content[0].Line == dash && ov.Anchor == "" {
		if lines, ok := s.inlineMap(chunk, v, ov, span{dash, sp.end}, sp.start); ok {
			return lines, true
		}
	}
	if ov.Line > dash {
		if lines, ok := s.nested(chunk, v, ov, span{dash, sp.end}, sp.start); ok {
			return lines, true
		}
	}
	return s.fresh(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{v}}, col, tail)
}

// inlineMap renders a mapping item whose first key shares the line with the
// "-" indicator. The indicator is blanked out while the entries are rendered
// and put back in front of whichever line comes first.
func (s *splicer) inlineMap(chunk []string, v, ov *yaml.Node, outer span, base int) ([]string, bool) {
	r := []rune(s.line(outer.start))
	c := ov.Content[0].Column - 1
	if c > len(r) {
		return nil, false
	}
	prefix := string(r[:c])
	pad := strings.Repeat(" ", c)
	sub := s.withLine(outer.start, pad+string(r[c:]))
	body, _, ok := sub.mapBody(v, ov, outer)
	if !ok || len(body) == 0 || !strings.HasPrefix(body[0], pad) || isBlank(body[0]) || isComment(body[0]) {
		return nil, false
	}
	body[0] = prefix + body[0][len(pad):]
	return append(slices.Clone(chunk[:outer.start-base]), body...), true
}

// fresh encodes n, which is a one-entry mapping or sequence, indented to col,
// followed by tail.
func (s *splicer) fresh(n *yaml.Node, col int, tail []string) ([]string, bool) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(s.indent)
	if err := enc.Encode(n); err != nil {
		return nil, false
	}
	if err := enc.Close(); err != nil {
		return nil, false
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	pad := strings.Repeat(" ", col)
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return append(lines, tail...), true
}

// replaceToken rewrites the single-line scalar o, which starts in chunk (the
// source from line base on), with the text of n. It reports false when either
// side is not a plain one-line scalar edit.
func (s *splicer) replaceToken(chunk []string, base int, o, n *yaml.Node, key bool) bool {
	if o.Kind != yaml.ScalarNode || n.Kind != yaml.ScalarNode || o.Anchor != "" || n.Anchor != "" {
		return false
	}
	if o.Style&(yaml.LiteralStyle|yaml.FoldedStyle|yaml.TaggedStyle) != 0 {
		return false
	}
	if o.Value == n.Value && o.ShortTag() == n.ShortTag() {
		return true
	}
	row := o.Line - base
	if row < 0 || row >= len(chunk) {
		return false
	}
	r := []rune(chunk[row])
	c := o.Column - 1
	if c < 0 || c >= len(r) {
		return false
	}
	end, ok := tokenEnd(r, c, key)
	if !ok {
		return false
	}
	if o.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0 && string(r[c:end]) != o.Value {
		return false
	}
	text, ok := inlineText(n)
	if !ok {
		return false
	}
	chunk[row] = string(r[:c]) + text + string(r[end:])
	return true
}

// tokenEnd returns the index just past the scalar token starting at r[c].
func tokenEnd(r []rune, c int, key bool) (int, bool) {
	switch r[c] {
	case '"':
		for i := c + 1; i < len(r); i++ {
			switch r[i] {
			case '\\':
				i++
			case '"':
				return i + 1, true
			}
		}
		return 0, false
	case '\'':
		for i := c + 1; i < len(r); i++ {
			if r[i] != '\'' {
				continue
			}
			if i+1 < len(r) && r[i+1] == '\'' {
				i++
				continue
			}
			return i + 1, true
		}
		return 0, false
	}
	if key {
		for i := c; i < len(r); i++ {
			if r[i] == ':' && (i+1 == len(r) || r[i+1] == ' ') {
				return i, true
			}
		}
		return 0, false
	}
	end := len(r)
	for i := c; i+1 < len(r); i++ {
		if r[i] == ' ' && r[i+1] == '#' {
			end = i
			break
		}
	}
	for end > c && r[end-1] == ' ' {
		end--
	}
	return end, end > c
}

// inlineText encodes a scalar as it would appear inline, without comments.
func inlineText(n *yaml.Node) (string, bool) {
	cp := *n
	cp.HeadComment, cp.LineComment, cp.FootComment = "", "", ""
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return "", false
	}
	text := strings.TrimSuffix(string(b), "\n")
	if text == "" || strings.Contains(text, "\n") {
		return "", false
	}
	return text, true
}

// nodeEqual reports whether two subtrees would be written identically.
func nodeEqual(a, b *yaml.Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	if a.Kind == yaml.AliasNode {
		return a.Value == b.Value && a.Style == b.Style && sameComments(a, b)
	}
	if a.Style != b.Style || a.Value != b.Value || a.Anchor != b.Anchor || a.ShortTag() != b.ShortTag() {
		return false
	}
	if !sameComments(a, b) || len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !nodeEqual(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}

func sameComments(a, b *yaml.Node) bool {
	return a.HeadComment == b.HeadComment && a.LineComment == b.LineComment && a.FootComment == b.FootComment
}

// sameValue reports whether two subtrees hold the same data, ignoring
// comments and presentation style.
func sameValue(a, b *yaml.Node) bool {
	if a == nil || b == nil || a.Kind != b.Kind || len(a.Content) != len(b.Content) {
		return false
	}
	if a.Kind == yaml.AliasNode {
		return a.Value == b.Value
	}
	if a.Anchor != b.Anchor {
		return false
	}
	if a.Kind == yaml.ScalarNode && (a.Value != b.Value || a.ShortTag() != b.ShortTag()) {
		return false
	}
	for i := range a.Content {
		if !sameValue(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}
