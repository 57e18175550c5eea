// Package mdm implements the Multi-Database Manager: the data-root-level
// cache of VSMs, the periodic maintenance task that drives their
// reclamation, and the disk-quota enforcer that can reclaim from databases
// outside the cache entirely.
package mdm
