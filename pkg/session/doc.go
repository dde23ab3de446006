/*
Package session serializes access to flow sessions.

The Manager keeps one reference-counted mutex per session ID, so turns on the
same session run one at a time while unrelated sessions never wait on each
other. With a DistributedLocker configured the same guarantee holds across
replicas sharing a store.
*/
package session
