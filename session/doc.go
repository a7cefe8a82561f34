// Package session implements the registry of live logical connections.
//
// A Session stands in for a persistent connection across stateless
// invocations: it owns an ordered buffer of outbound payloads awaiting the
// next poll and a monotonically increasing event cursor that numbers every
// framed event emitted for the session. Draining the buffer is destructive
// and exactly-once per poll; the cursor advances by the number of drained
// payloads and is never reused or reset for the lifetime of the session.
//
// Registry is the storage contract. MemoryRegistry is the default backend:
// a process-local, mutex-guarded map that is intentionally not persisted
// and never garbage-collected unless an idle timeout is configured (the
// hosting model is ephemeral, so unbounded growth within one process is an
// accepted trade). RedisRegistry implements the same contract against a
// shared Redis instance for deployments where invocations do not share
// process memory.
package session
