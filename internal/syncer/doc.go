// Package syncer mirrors the processed library onto a portable device:
// unchanged files are skipped by size and modification time, cache
// directories and metadata documents stay home, and extraneous device files
// can optionally be pruned.
package syncer
