package security

import "sort"

// Rules is the denylist used by a Screener. It is read-only after construction
// and may be shared by any number of concurrent scans.
type Rules struct {
	calls      map[string]struct{}
	imports    map[string]struct{}
	attributes map[string]struct{}
}

var (
	defaultCalls = []string{
		"exec", "eval", "compile", "getattr", "setattr",
		"delattr", "globals", "locals", "__import__",
	}
	defaultImports = []string{
		"os", "sys", "subprocess", "importlib", "shutil",
		"socket", "pickle", "shelve",
	}
	// attribute names flagged when read from a bare name, e.g. builtins.eval
	dynamicAttributes = []string{"exec", "eval", "compile"}
)

// DefaultRules returns the built-in denylist.
func DefaultRules() Rules {
	return NewRules(defaultCalls, defaultImports)
}

// NewRules builds a rule set from the given call and import targets. A nil or
// empty slice keeps the corresponding default. The attribute set is fixed.
func NewRules(calls, imports []string) Rules {
	if len(calls) == 0 {
		calls = defaultCalls
	}
	if len(imports) == 0 {
		imports = defaultImports
	}
	return Rules{
		calls:      toSet(calls),
		imports:    toSet(imports),
		attributes: toSet(dynamicAttributes),
	}
}

func (r Rules) isDangerousCall(name string) bool {
	_, ok := r.calls[name]
	return ok
}

func (r Rules) isDangerousImport(module string) bool {
	_, ok := r.imports[module]
	return ok
}

func (r Rules) isDynamicAttribute(attr string) bool {
	_, ok := r.attributes[attr]
	return ok
}

// Calls returns the dangerous call targets in sorted order.
func (r Rules) Calls() []string { return sortedKeys(r.calls) }

// Imports returns the dangerous import targets in sorted order.
func (r Rules) Imports() []string { return sortedKeys(r.imports) }

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
