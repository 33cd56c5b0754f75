/*
Package sweeper implements optional mirror cleanup of the destination.

After the transfer phase drains, the sweeper walks the destination
inventory collected by the destination scanner and deletes files that
no longer exist at the source. The safety protocol is strict:

  - every candidate gets a live stat against the source immediately
    before deletion — inventory and catalog state are treated as
    potentially stale;
  - a source that exists, or a live check that fails for any reason
    other than not-exist, keeps the destination file;
  - every deletion is written to the audit log.

A destination file is therefore never deleted while its source path
exists at the time of the check, no matter what the catalog says.
*/
package sweeper
