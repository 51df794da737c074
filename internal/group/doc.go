// Package group turns the flat listing of one acquisition folder into a typed,
// readiness-checked recording group.
//
// Loading is split in two. Discover lists the folder, classifies each child
// and parses the headers of recordings not seen before; it touches no shared
// state and runs on loader workers. Apply then reuses or inserts records in the
// session cache, rebuilds the role buckets and aggregates readiness. Callers
// serialize Apply with every other mutation of the session.
//
// A group is Ready only when it holds at least one file of every role and
// every recording in it validates Good. AssembleInputs refuses groups that are
// not Ready.
package group
