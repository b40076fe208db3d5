// Package cli parses the convsweep command line, layers config file values
// and explicit flags over the defaults, and maps failures to exit codes.
//
// Exit codes:
//
//	0  the sweep completed and the summary table was written
//	1  missing parameter file, no meshes, a failed solver run, or an interrupt
//	2  invalid usage: unknown flags, wrong arguments, invalid config values
//
// The legacy single-dash form -ntail is accepted alongside --ntail.
package cli
