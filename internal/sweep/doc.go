// Package sweep drives a convergence study over polynomial degrees and meshes.
//
// The engine stages the solver executable and parameter file in a scratch
// directory, discovers the meshes, and then runs the solver once per sweep
// point (degree outer, mesh inner). After each successful run it appends a
// row to the summary file; the first failure aborts the whole sweep.
//
// # Usage
//
//	cfg := sweep.DefaultConfig()
//	cfg.Exe = "./fluxo"
//	cfg.Prm = "parameter_convtest.ini"
//	engine := sweep.New(cfg)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Table)
//	fmt.Println(result.Report())
//
// The scratch directory is removed on every return path of Run.
package sweep
