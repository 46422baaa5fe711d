// Package common provides shared types used across the launcher helper.
// It includes the error taxonomy returned by every operation, system types
// (OS, Arch), and the execution results rendered by the command line.
package common

// ExecutionResult represents the outcome of a launcher command.
type ExecutionResult struct {
	// ExitCode is the status code to return to the shell.
	ExitCode int
	// Output is rendered by the display once the command returns.
	Output *Output
}

// Output is structured data produced by a command.
type Output struct {
	Message string
	KV      []KV
	Table   *Table
}

// KV is a single labelled value.
type KV struct {
	Key   string
	Value string
}

// Table is a simple header + rows grid.
type Table struct {
	Header []string
	Rows   [][]string
}

// AddRow appends a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
