// internal/output/types.go - Output table types
package output

// Table is a row-oriented, string-rendered table ready for CSV output.
type Table struct {
	Columns []string
	Rows    [][]string
}
