// Package naming derives output file names from input file names and
// resolves in-run collisions between them.
//
//   - outputpath.go: [Stem] and [OutputPath] (<stem>.wav in the output dir)
//   - collision.go: [CollisionResolver], " - dupN" suffixes for inputs that
//     share a stem
package naming
