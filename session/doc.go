/*
Package session keeps live workspaces keyed by session id and persists their
scratch state after each mutation.

A session that is not live is restored from the Store on first access, so a
restarted server picks up where its clients left off until the store's TTL
expires. Stores live in the memory and redis sub-packages; both satisfy
RunStoreContract.
*/
package session
