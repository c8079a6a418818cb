// Package bdiff implements a block-based binary differencing scheme.
// A signature describes a basis file as one 16-byte hash per fixed-size
// block; a delta describes a new file as copy-from-basis and literal
// instructions against that signature; patching replays the delta over the
// basis file and verifies a whole-file SHA-256 checksum.
//
// Matching happens only at identical block alignment. This is not a
// rolling-checksum (rsync-style) algorithm: an insertion that shifts block
// boundaries defeats matching for everything after it.
package bdiff
