/*
Package ports defines the driven ports (interfaces) for the loopkit runtime.

These interfaces decouple the core loop from external implementations,
allowing applied events and state snapshots to be persisted in various
backends without the engine knowing about any of them.

# Key Interfaces

  - Journal: append-only log of applied event records, replayable in order.
  - SnapshotStore: persistence for the latest serialized state per loop ID.

Both operate on serialized records, so implementations stay free of the
application's generic state and event types; encoding is the caller's job
(see the loopkit root package's codec helpers).
*/
package ports
