// Package snapshot implements an in-process, sharded-map Engine that
// persists each snapshot directory as a single binary file.
//
// It is the in-process default behind the engine.Engine contract: a
// writable Handle holds data in a sharded xsync.MapOf, and Close writes a
// flat binary file (magic "FVRSNAP1") into the snapshot directory; a
// read-only Handle replays that file into an immutable, identically-sharded
// map at open time. There is no GC, no TTL, no event queue - a published
// snapshot is never mutated again, so no time-based reclamation machinery
// applies here.
package snapshot
