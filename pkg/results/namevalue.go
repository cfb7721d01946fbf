package results

// NameValue is a BigQuery-compatible type for name/value pairs.
type NameValue struct {
	Name  string
	Value string
}
