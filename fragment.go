package sqlz

// Fragment is a piece of SQL carrying its own ordered bindings. It can be used
// wherever a field name or a comparison value is expected, and is rendered
// as-is instead of being replaced with a placeholder. Never build fragments
// from user-supplied input, as this may open the door for SQL injections!
type Fragment struct {
	SQL      string
	Bindings []interface{}
}

// Raw creates a fragment from SQL text and the values of its placeholders.
func Raw(asSQL string, bindings ...interface{}) Fragment {
	return Fragment{SQL: asSQL, Bindings: bindings}
}

// FieldRef creates a fragment referencing a (possibly table-qualified)
// column, for comparing two columns with each other.
func FieldRef(name string) Fragment {
	return Fragment{SQL: quoteField(name)}
}

// ToSQL returns the fragment's text.
func (f Fragment) ToSQL() string {
	return f.SQL
}
