// Package vsm implements the Versioned Snapshot Manager: the write-once
// publication protocol and the read/reclamation paths for one logical
// database directory.
//
// A VSM owns exactly one fvr.FVR and one engine.Engine-backed handle cache.
// Writers call WriteOnce to publish a new version; readers call Get or
// MultiGet against whatever version the FVR currently names. Reclamation
// (Clear) deletes version directories that have not been opened recently,
// always preserving the current version.
package vsm
