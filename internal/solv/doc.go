// Package solv binds libsolv, the SAT-based dependency solver spec §4.3
// treats as "an opaque native service", via cgo. The binding mirrors a
// linear Pool → Repo → Queue → Solver → Transaction ownership chain:
// the pool outlives every sub-repo, and sub-repos outlive the
// transaction built from them, matching spec §9's "Native solver
// binding" design note.
//
// Building this package requires libsolv's C headers and shared library
// to be installed on the build host (the "solv" and "solvext" packages
// on Debian-derived systems).
package solv
