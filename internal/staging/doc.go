// Package staging copies the solver executable and parameter file into an
// isolated scratch directory.
//
// The caller owns the Area and must call Cleanup on every exit path:
//
//	area, err := staging.New("", "convsweep-")
//	if err != nil {
//	    return err
//	}
//	defer area.Cleanup()
//
//	exe, err := area.Copy(exePath)
package staging
