// Package summary formats and persists the convergence table.
//
// The table is a fixed-width, comma-separated text layout (not strict CSV):
// one header line followed by one line per sweep point, joined by '\n'
// without a trailing newline. Each line holds the degree, the mesh name, and
// the L2 and Linf errors of every solution variable.
//
// Writer persists the table incrementally: Start truncates the file and
// writes the header, Append opens the file, appends one line and closes it
// again, so every completed row is on disk before the next run starts.
// Finalize re-renders the whole table from the collected rows.
package summary
