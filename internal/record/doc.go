// Package record models individual acquisition files and their validation
// state.
//
// Every file discovered in a recording group becomes a File. Recording
// specializes File for continuous acquisitions and carries the operator
// entered task/run identity, junk and empty-room classification, and the
// ordered list of marker files bound to it.
//
// Validity is tri-state: Unknown until the first CheckComplete, then Good or
// Bad with the offending fields. Records never hold pointers to their group;
// they carry the group's ID and reach it through Hooks, which the owning
// session implements.
package record
