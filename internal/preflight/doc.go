// Package preflight checks that scribe's directories are usable and that the
// remote services a configuration depends on answer before a job starts.
package preflight
