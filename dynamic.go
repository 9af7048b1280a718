package sqlz

import (
	"strings"
	"unicode"
)

type callKind int

const (
	callIs callKind = iota
	callIsNot
	callIn
	callBetween
)

// dynamicCall is a parsed condition shorthand such as "andXyzNotBetween".
type dynamicCall struct {
	method string
	field  string
	kind   callKind
	negate bool
}

var callPrefixes = []string{"and", "or", "on", "having", "where"}

var callSuffixes = []struct {
	suffix string
	kind   callKind
	negate bool
}{
	{"IsNot", callIsNot, false},
	{"Is", callIs, false},
	{"NotIn", callIn, true},
	{"In", callIn, false},
	{"NotBetween", callBetween, true},
	{"Between", callBetween, false},
}

// parseCall decomposes a shorthand name of the form
// [and|or|on|having|where]<Field>(Is|IsNot|In|NotIn|Between|NotBetween).
// A prefix only counts when followed by an upper case letter, so "orderIs"
// is a condition on the field "order". Field names are lower-cased.
func parseCall(name string) (dynamicCall, error) {
	call := dynamicCall{method: "where"}
	rest := name

	for _, prefix := range callPrefixes {
		if len(rest) > len(prefix) && strings.HasPrefix(rest, prefix) && unicode.IsUpper(rune(rest[len(prefix)])) {
			call.method = prefix
			rest = rest[len(prefix):]
			break
		}
	}

	matched := false
	for _, s := range callSuffixes {
		if strings.HasSuffix(rest, s.suffix) {
			call.kind, call.negate = s.kind, s.negate
			rest = strings.TrimSuffix(rest, s.suffix)
			matched = true
			break
		}
	}
	if !matched {
		return call, &CallError{Name: name, Reason: "no Is, IsNot, In or Between suffix"}
	}
	if rest == "" {
		return call, &CallError{Name: name, Reason: "missing field name"}
	}

	call.field = strings.ToLower(rest)
	return call, nil
}

// Call applies a condition shorthand: the name is decomposed into an optional
// clause prefix (and, or, on, having, where; where by default), a field and a
// suffix selecting the comparison. For example
//
//	Call("xyzIs", 42)                   Where("xyz", 42)
//	Call("xyzIsNot", nil)               Where("xyz", "IS NOT", nil)
//	Call("abcIn", 1, 2, 3)              Where().In("abc", 1, 2, 3)
//	Call("andXyzNotBetween", 42, 1337)  AddAnd().Not().Between("xyz", 42, 1337)
//
// "and" and "or" alone are aliases of AddAnd and AddOr. Names that do not
// fit the grammar fail the statement with a *CallError.
func (stmt *SelectStmt) Call(name string, args ...interface{}) *SelectStmt {
	if stmt.err != nil {
		return stmt
	}

	switch name {
	case "and":
		return stmt.AddAnd(args...)
	case "or":
		return stmt.AddOr(args...)
	}

	call, err := parseCall(name)
	if err != nil {
		return stmt.fail(err)
	}

	open := stmt.methodFor(call.method)

	switch call.kind {
	case callIs:
		return open(append([]interface{}{call.field}, args...)...)
	case callIsNot:
		op := "!="
		if len(args) > 0 && isNull(args[0]) {
			op = "IS NOT"
		}
		return open(append([]interface{}{call.field, op}, args...)...)
	case callIn:
		open()
		if call.negate {
			stmt.Not()
		}
		return stmt.In(call.field, args...)
	default:
		if len(args) != 2 {
			return stmt.fail(&CallError{Name: name, Reason: "between takes exactly two arguments"})
		}
		open()
		if call.negate {
			stmt.Not()
		}
		return stmt.Between(call.field, args[0], args[1])
	}
}

func (stmt *SelectStmt) methodFor(method string) func(...interface{}) *SelectStmt {
	switch method {
	case "and":
		return stmt.AddAnd
	case "or":
		return stmt.AddOr
	case "on":
		return stmt.On
	case "having":
		return stmt.Having
	default:
		return stmt.Where
	}
}
