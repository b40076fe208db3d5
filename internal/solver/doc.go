// Package solver runs the external solver executable for one sweep point.
//
// The solver is a black box: it is started with the parameter file as its
// only argument (optionally under an MPI launcher), and everything it prints
// on stdout and stderr is written to a per-run log file. The full output is
// returned for metric extraction and a bounded tail is kept for diagnostics.
//
//	r := solver.NewRunner(exe)
//	r.Procs = 4
//	out, err := r.Run(ctx, prmPath, "X_Degree_4_Mesh_Box_02")
//	var runErr *solver.RunError
//	if errors.As(err, &runErr) {
//	    fmt.Println(strings.Join(runErr.Tail, "\n"))
//	}
//
// Run blocks until the process exits. Cancelling the context kills the
// whole process group.
package solver
