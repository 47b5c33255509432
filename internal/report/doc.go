// Package report renders correspondence results: a static vector plot of
// the recovered displacements and an interactive HTML chart of solver
// convergence.
package report
