// Package ptv matches particles between two frames of a particle tracking
// velocimetry (PTV) recording using probabilistic relaxation labeling.
//
// Responsibilities: neighbour-set construction, per-anchor label
// probability matrices, geometric compatibility sets, the fixed-iteration
// relaxation solver and match extraction. Key types: Cloud, NeighborSet,
// ProbabilitySet, CompatibilitySet, Match, Engine.
//
// Pipeline for one ordered frame pair (A → B):
//
//	S_r   = BuildSelfNeighborSet(A, R_n)        neighbours of each anchor in A
//	S_c   = BuildNeighborSet(A, B, R_s)         candidates of each anchor in B
//	P     = NewProbabilitySets(S_r, S_c)        uniform, double-buffered
//	theta = BuildCompatibilitySets(A, B, ...)   rigid-local-motion relation
//	P     = Relax(ctx, P, theta, cfg)           N synchronous iterations
//	M     = ExtractMatches(P, S_r, S_c, 0.99)   self row, first column > threshold
//
// Scalability: the compatibility pass is O(|S_r[k]|²·|S_c[k]|²) per anchor and
// dominates the run time and memory of the whole engine. Keep R_n and R_s
// small enough that neighbourhoods hold tens of particles, not hundreds.
//
// Reading point files, plotting and persistence live in sibling packages
// (internal/frames, internal/report, internal/storage/sqlite). This package
// performs no I/O.
package ptv
