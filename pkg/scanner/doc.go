/*
Package scanner implements hsync's two walkers.

The source walker visits every regular file under the source root,
captures its metadata, and resolves it against a live stat of the
destination: equal mtime and size means already synced, anything else
joins the backlog. Decisions land in the catalog via UpsertScanned, so
a crash mid-scan loses at most the not-yet-visited files.

The destination walker is deliberately dumb: it records what exists
under the destination root and nothing more. Its inventory is consumed
only by the mirror sweeper, which re-checks each candidate against the
live source before deleting.

The two walks run concurrently and are not ordered with respect to
each other. Symlinks and other special files are skipped with a
warning and an audit record.
*/
package scanner
