// Package prm reads and rewrites solver parameter files.
//
// A parameter file is plain text with one "Key = Value" assignment per line.
// A '!' starts a comment, blank lines are ignored, and keys are compared
// case-insensitively. When a key appears more than once, Get returns the last
// assignment, and Set rewrites every occurrence. Set appends a missing key.
//
//	base, err := prm.Get("parameter.ini", "ProjectName")
//	err = prm.Set("parameter.ini",
//	    prm.KV{Key: "N", Value: "4"},
//	    prm.KV{Key: "MeshFile", Value: "../meshes/Box_02_mesh.h5"},
//	)
package prm
