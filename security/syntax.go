package security

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// The tree-sitter grammar is deliberately forgiving: it keeps Python 2 statements,
// tolerates stray characters and does not enforce several rules CPython's parser
// does. checkPython3 rejects those forms so that only code Python 3 would compile
// is ever reported safe.
func checkPython3(root *sitter.Node, src []byte) *syntaxError {
	c := py3Checker{src: src}
	if err := c.uncovered(root); err != nil {
		return err
	}
	return c.check(root)
}

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true,
	"finally": true, "for": true, "from": true, "global": true, "if": true,
	"import": true, "in": true, "is": true, "lambda": true, "nonlocal": true,
	"not": true, "or": true, "pass": true, "raise": true, "return": true,
	"try": true, "while": true, "with": true, "yield": true,
}

var stringPrefixes = map[string]bool{
	"": true, "r": true, "u": true, "f": true, "b": true,
	"br": true, "rb": true, "fr": true, "rf": true,
}

// parents under which an assignment expression needs its own parentheses
var bareWalrusParents = map[string]bool{
	"expression_statement": true, "assignment": true, "augmented_assignment": true,
	"return_statement": true, "expression_list": true, "keyword_argument": true,
	"lambda": true, "yield": true, "pair": true, "default_parameter": true,
	"typed_default_parameter": true,
}

type py3Checker struct {
	src []byte
}

func (c *py3Checker) fail(n *sitter.Node, format string, args ...any) *syntaxError {
	line := int(n.StartPoint().Row) + 1
	return &syntaxError{line: line, reason: fmt.Sprintf(format, args...) + fmt.Sprintf(" on line %d", line)}
}

func (c *py3Checker) check(n *sitter.Node) *syntaxError {
	if err := c.node(n); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if err := c.check(n.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

func (c *py3Checker) node(n *sitter.Node) *syntaxError {
	switch n.Type() {
	case "print_statement":
		return c.fail(n, "missing parentheses in call to 'print'")
	case "exec_statement":
		return c.fail(n, "missing parentheses in call to 'exec'")
	case "<>":
		return c.fail(n, "'<>' is not an operator")
	case "identifier":
		if name := n.Content(c.src); pythonKeywords[name] {
			return c.fail(n, "keyword %q used as a name", name)
		}
	case "integer":
		return c.integer(n)
	case "string":
		return c.stringPrefix(n)
	case "concatenated_string":
		return c.concatenation(n)
	case "module", "block":
		return c.indentation(n)
	case "raise_statement":
		if c.hasDirectChild(n, ",", "expression_list") {
			return c.fail(n, "raise takes a single exception")
		}
	case "except_clause":
		if c.hasDirectChild(n, ",", "expression_list") {
			return c.fail(n, "multiple exception types must be parenthesized")
		}
	case "parameters", "lambda_parameters":
		if c.hasDirectChild(n, "tuple_pattern", "list_pattern") {
			return c.fail(n, "tuple parameter unpacking is not supported")
		}
	case "named_expression":
		if p := n.Parent(); p != nil && bareWalrusParents[p.Type()] {
			return c.fail(n, "unparenthesized assignment expression")
		}
	case "augmented_assignment":
		if !c.singleTarget(n.ChildByFieldName("left")) {
			return c.fail(n, "illegal expression for augmented assignment")
		}
	case "delete_statement":
		for _, target := range c.operands(n) {
			if !c.deleteTarget(target) {
				return c.fail(target, "cannot delete %s", target.Type())
			}
		}
	case "argument_list":
		return c.argumentOrder(n)
	case "for_in_clause":
		seenIn := false
		for i := 0; i < int(n.ChildCount()); i++ {
			switch n.Child(i).Type() {
			case "in":
				seenIn = true
			case ",":
				if seenIn {
					return c.fail(n, "comprehension iterable must be parenthesized")
				}
			}
		}
	}
	return nil
}

func (c *py3Checker) hasDirectChild(n *sitter.Node, types ...string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		t := n.Child(i).Type()
		for _, want := range types {
			if t == want {
				return true
			}
		}
	}
	return false
}

// operands returns the named children of n, comments excluded.
func (c *py3Checker) operands(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

func (c *py3Checker) integer(n *sitter.Node) *syntaxError {
	text := strings.ReplaceAll(n.Content(c.src), "_", "")
	if strings.HasSuffix(strings.ToLower(text), "l") {
		return c.fail(n, "invalid integer literal %q", text)
	}
	if len(text) > 1 && text[0] == '0' && isDigits(text) && strings.Trim(text, "0") != "" {
		return c.fail(n, "leading zeros in decimal integer literals are not permitted")
	}
	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// prefix returns the lowercased prefix of a string node, e.g. "rb" for rb'x'.
func (c *py3Checker) prefix(n *sitter.Node) (string, bool) {
	if n.ChildCount() == 0 {
		return "", false
	}
	start := n.Child(0)
	if start.Type() != "string_start" {
		return "", false
	}
	return strings.ToLower(strings.TrimRight(start.Content(c.src), "'\"`")), true
}

func (c *py3Checker) stringPrefix(n *sitter.Node) *syntaxError {
	if n.ChildCount() > 0 && strings.Contains(n.Child(0).Content(c.src), "`") {
		return c.fail(n, "backquote repr is not supported")
	}
	if p, ok := c.prefix(n); ok && !stringPrefixes[p] {
		return c.fail(n, "invalid string prefix %q", p)
	}
	return nil
}

func (c *py3Checker) concatenation(n *sitter.Node) *syntaxError {
	var bytesSeen, textSeen bool
	for _, part := range c.operands(n) {
		p, ok := c.prefix(part)
		if !ok {
			continue
		}
		if strings.Contains(p, "b") {
			bytesSeen = true
		} else {
			textSeen = true
		}
	}
	if bytesSeen && textSeen {
		return c.fail(n, "cannot mix bytes and nonbytes literals")
	}
	return nil
}

// indentation checks that statements starting a line in the same suite share one
// indentation, and that module level statements are not indented.
func (c *py3Checker) indentation(n *sitter.Node) *syntaxError {
	var want []byte
	first := true
	for _, stmt := range c.operands(n) {
		prefix, ok := c.linePrefix(stmt)
		if !ok {
			continue
		}
		if n.Type() == "module" && len(prefix) > 0 {
			return c.fail(stmt, "unexpected indent")
		}
		if first {
			want, first = prefix, false
			continue
		}
		if !bytes.Equal(prefix, want) {
			return c.fail(stmt, "inconsistent indentation")
		}
	}
	return nil
}

// linePrefix returns the text between the start of n's line and n when that text is
// only indentation.
func (c *py3Checker) linePrefix(n *sitter.Node) ([]byte, bool) {
	start := int(n.StartByte())
	lineStart := bytes.LastIndexByte(c.src[:start], '\n') + 1
	prefix := c.src[lineStart:start]
	for _, b := range prefix {
		if b != ' ' && b != '\t' && b != '\f' {
			return nil, false
		}
	}
	return prefix, true
}

func (c *py3Checker) singleTarget(n *sitter.Node) bool {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = soleOperand(n)
	}
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "attribute", "subscript":
		return true
	}
	return false
}

func (c *py3Checker) deleteTarget(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier", "attribute", "subscript":
		return true
	case "parenthesized_expression":
		inner := soleOperand(n)
		return inner != nil && c.deleteTarget(inner)
	case "tuple", "list", "expression_list":
		for _, el := range c.operands(n) {
			if !c.deleteTarget(el) {
				return false
			}
		}
		return true
	}
	return false
}

func (c *py3Checker) argumentOrder(n *sitter.Node) *syntaxError {
	var keyword, dictSplat bool
	for _, arg := range c.operands(n) {
		switch arg.Type() {
		case "keyword_argument":
			keyword = true
		case "dictionary_splat":
			dictSplat = true
		case "list_splat", "parenthesized_list_splat":
			if dictSplat {
				return c.fail(arg, "iterable argument unpacking follows keyword argument unpacking")
			}
		default:
			if dictSplat {
				return c.fail(arg, "positional argument follows keyword argument unpacking")
			}
			if keyword {
				return c.fail(arg, "positional argument follows keyword argument")
			}
		}
	}
	return nil
}

var bom = []byte("\xef\xbb\xbf")

// uncovered finds source text that no token accounts for. The grammar's error
// recovery can skip characters such as backticks without leaving an ERROR node.
func (c *py3Checker) uncovered(root *sitter.Node) *syntaxError {
	pos := 0
	if bytes.HasPrefix(c.src, bom) {
		pos = len(bom)
	}

	var visit func(n *sitter.Node) *syntaxError
	visit = func(n *sitter.Node) *syntaxError {
		// strings are checked whole; their parts do not tile the literal
		if n.ChildCount() == 0 || n.Type() == "string" {
			start, end := int(n.StartByte()), int(n.EndByte())
			if err := c.gap(pos, start); err != nil {
				return err
			}
			if end > pos {
				pos = end
			}
			return nil
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if err := visit(n.Child(i)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root); err != nil {
		return err
	}
	return c.gap(pos, len(c.src))
}

func (c *py3Checker) gap(from, to int) *syntaxError {
	for i := from; i < to && i < len(c.src); i++ {
		switch c.src[i] {
		case ' ', '\t', '\f', '\r', '\n':
			continue
		}
		r, _ := utf8.DecodeRune(c.src[i:])
		line := bytes.Count(c.src[:i], []byte("\n")) + 1
		return &syntaxError{line: line, reason: fmt.Sprintf("invalid character %q on line %d", r, line)}
	}
	return nil
}
