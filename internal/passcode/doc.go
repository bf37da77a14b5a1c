// Package passcode implements password reset by emailed passcode.
//
// Each email has at most one active Record: a six digit code and the time
// it was issued. Request replaces the record and mails the code. Verify
// walks NONE -> ISSUED -> {VERIFIED | EXPIRED | MISMATCHED}, checking in
// order: a record exists, the code matches, the window has not elapsed,
// and the email belongs to an identity.
//
// Records live behind the Store interface. MemoryStore suits a single
// process, FileStore keeps one file per email hash in a directory, and
// RedisStore shares records across instances.
package passcode
