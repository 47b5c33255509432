// Package sqlite persists correspondence runs and their matches.
//
// Each frame pair processed by ptv-track becomes one row in ptv_runs, with
// its effective parameters and displacement summary, plus one row per
// matched particle in ptv_matches. The schema is embedded and migrated with
// golang-migrate when the database is opened.
package sqlite
