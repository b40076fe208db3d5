// Package extract pulls numeric metrics out of unstructured solver output.
//
// An Extractor receives the raw text of a run and returns an ordered list of
// named values. When the expected pattern is absent it returns an error
// wrapping ErrNotFound; malformed numbers produce a parse error instead.
//
// Two extractors cover the solver's analyze output:
//
//	L_2       :    1.2345E-04   2.3456E-04
//	L_inf     :    3.4567E-04   4.5678E-04
//	CALCULATION TIME PER TSTEP/DOF: [ 1.23E-06 sec ]
//
// LastLine reads the last line with a given prefix, Bracketed reads the value
// between a marker and a unit. Set bundles the defaults used by the sweep.
package extract
