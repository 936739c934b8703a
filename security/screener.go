// Package security screens model-generated Python code before it is executed.
//
// The Screener is a denylist: it flags direct calls to dynamic execution and
// reflection builtins, imports of system access modules and dynamic execution
// reached through attribute lookup. A safe verdict is not a sandbox guarantee.
package security

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

type FindingKind string

const (
	KindCall       FindingKind = "call"
	KindImport     FindingKind = "import"
	KindImportFrom FindingKind = "import-from"
	KindAttribute  FindingKind = "attribute"
	KindParse      FindingKind = "parse"
)

// Finding is one rule match. Line is 1-based; 0 when unknown.
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Name    string      `json:"name,omitempty"`
	Line    int         `json:"line,omitempty"`
	Message string      `json:"message"`
}

// Verdict is the result of a single scan.
type Verdict struct {
	Unsafe   bool      `json:"unsafe"`
	Findings []Finding `json:"findings"`
}

// Messages returns the finding messages in scan order.
func (v Verdict) Messages() []string {
	out := make([]string, 0, len(v.Findings))
	for _, f := range v.Findings {
		out = append(out, f.Message)
	}
	return out
}

type Screener struct {
	rules  Rules
	logger *slog.Logger
}

// New returns a Screener using rules. A zero Rules value selects DefaultRules.
func New(rules Rules) *Screener {
	if rules.calls == nil && rules.imports == nil {
		rules = DefaultRules()
	}
	return &Screener{rules: rules}
}

// WithLogger enables verbose mode: every finding is also logged at warn level.
func (s *Screener) WithLogger(logger *slog.Logger) *Screener {
	c := *s
	c.logger = logger
	return &c
}

func (s *Screener) Rules() Rules { return s.rules }

// Check reports whether code looks malicious using the default rules.
func Check(code string, verbose bool) bool {
	s := New(DefaultRules())
	if verbose {
		s = s.WithLogger(slog.Default())
	}
	return s.Scan(code).Unsafe
}

func (s *Screener) Scan(code string) Verdict {
	return s.ScanContext(context.Background(), code)
}

// ScanContext parses code and applies the rules. It never returns an error:
// parse failures, cancellation and internal failures all yield an unsafe verdict.
func (s *Screener) ScanContext(ctx context.Context, code string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = parseFailure(&syntaxError{reason: fmt.Sprintf("internal analysis error: %v", r)})
		}
		s.report(verdict)
	}()

	src := []byte(code)
	tree, synErr := parse(ctx, src)
	if synErr != nil {
		return parseFailure(synErr)
	}
	defer tree.Close()

	w := walker{rules: s.rules, src: src, findings: []Finding{}}
	walk(&w, tree.RootNode())
	return Verdict{Unsafe: len(w.findings) > 0, Findings: w.findings}
}

// walk applies the rules to the tree. Tests replace it to exercise the recovery path.
var walk = func(w *walker, root *sitter.Node) { w.visit(root) }

func (s *Screener) report(v Verdict) {
	if s.logger == nil {
		return
	}
	for _, f := range v.Findings {
		s.logger.Warn("[Security Warning] "+f.Message, "kind", f.Kind, "line", f.Line)
	}
}

// syntaxError locates why code could not be analysed. line is 0 when unknown.
type syntaxError struct {
	line   int
	reason string
}

func parseFailure(e *syntaxError) Verdict {
	return Verdict{
		Unsafe: true,
		Findings: []Finding{{
			Kind:    KindParse,
			Line:    e.line,
			Message: "Syntax error in code: " + e.reason,
		}},
	}
}

// parse returns a live tree, or a syntaxError when the source is not valid Python 3.
// Node data is copied out before a rejected tree is closed.
func parse(ctx context.Context, src []byte) (*sitter.Tree, *syntaxError) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &syntaxError{reason: err.Error()}
	}
	if tree == nil {
		return nil, &syntaxError{reason: "parser returned no tree"}
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &syntaxError{reason: "parser returned no tree"}
	}

	synErr := treeError(root)
	if synErr == nil {
		synErr = checkPython3(root, src)
	}
	if synErr != nil {
		tree.Close()
		return nil, synErr
	}
	return tree, nil
}

func treeError(root *sitter.Node) *syntaxError {
	bad := firstError(root)
	if bad == nil {
		return nil
	}
	line := int(bad.StartPoint().Row) + 1
	if bad.IsMissing() {
		return &syntaxError{line: line, reason: fmt.Sprintf("missing %q on line %d", bad.Type(), line)}
	}
	return &syntaxError{line: line, reason: fmt.Sprintf("invalid syntax on line %d", line)}
}

// firstError finds the first ERROR or MISSING node in source order.
func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.IsMissing() || n.Type() == "ERROR" {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	// HasError without a located node still fails closed
	return n
}

type walker struct {
	rules    Rules
	src      []byte
	findings []Finding
}

func (w *walker) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "call":
		w.call(n)
	case "import_statement":
		w.importStatement(n)
	case "import_from_statement":
		w.importFrom(n)
	case "attribute":
		w.attribute(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.visit(n.Child(i))
	}
}

func (w *walker) call(n *sitter.Node) {
	name, ok := w.bareName(n.ChildByFieldName("function"))
	if !ok {
		return
	}
	if w.rules.isDangerousCall(name) {
		w.add(KindCall, name, n)
	}
}

func (w *walker) importStatement(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		module := child
		if child.Type() == "aliased_import" {
			module = child.ChildByFieldName("name")
		}
		if module == nil || module.Type() != "dotted_name" {
			continue
		}
		name := module.Content(w.src)
		if w.rules.isDangerousImport(name) {
			w.add(KindImport, name, n)
		}
	}
}

func (w *walker) importFrom(n *sitter.Node) {
	module := n.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	if module.Type() == "relative_import" {
		// from .pkg import x names module "pkg"; from . import x names none
		var dotted *sitter.Node
		for i := 0; i < int(module.NamedChildCount()); i++ {
			if c := module.NamedChild(i); c.Type() == "dotted_name" {
				dotted = c
			}
		}
		if dotted == nil {
			return
		}
		module = dotted
	}
	name := module.Content(w.src)
	if w.rules.isDangerousImport(name) {
		w.add(KindImportFrom, name, n)
	}
}

func (w *walker) attribute(n *sitter.Node) {
	if _, ok := w.bareName(n.ChildByFieldName("object")); !ok {
		return
	}
	attr := n.ChildByFieldName("attribute")
	if attr == nil {
		return
	}
	name := attr.Content(w.src)
	if w.rules.isDynamicAttribute(name) {
		w.add(KindAttribute, name, n)
	}
}

// bareName returns the identifier n names, looking through redundant parentheses
// the way Python's own parser discards them: (eval) and eval are the same callee.
func (w *walker) bareName(n *sitter.Node) (string, bool) {
	for n != nil && n.Type() == "parenthesized_expression" {
		n = soleOperand(n)
	}
	if n == nil {
		return "", false
	}
	name := n.Content(w.src)
	// soft keywords such as exec and print can surface as anonymous leaves
	if n.Type() == "identifier" || (n.ChildCount() == 0 && identifier.MatchString(name)) {
		return name, true
	}
	return "", false
}

var identifier = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// soleOperand is the single expression inside a parenthesized_expression.
func soleOperand(n *sitter.Node) *sitter.Node {
	var inner *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if t := c.Type(); t == "(" || t == ")" || t == "comment" {
			continue
		}
		if inner != nil {
			return nil
		}
		inner = c
	}
	return inner
}

func (w *walker) add(kind FindingKind, name string, n *sitter.Node) {
	line := int(n.StartPoint().Row) + 1
	var msg string
	switch kind {
	case KindCall:
		msg = fmt.Sprintf("Malicious code detected: %s() on line %d", name, line)
	case KindAttribute:
		msg = fmt.Sprintf("Dynamic execution via %s detected on line %d", name, line)
	default:
		msg = fmt.Sprintf("Dangerous import detected: %s on line %d", name, line)
	}
	w.findings = append(w.findings, Finding{Kind: kind, Name: name, Line: line, Message: msg})
}
