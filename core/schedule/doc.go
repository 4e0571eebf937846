// Package schedule loads timed discharge setpoints from CSV files.
// A schedule is an ordered list of entries, each holding a start offset,
// a regulation mode (CC or CP), a setpoint and a duration. Entries are
// validated on load: fields must be numeric, durations non-negative and
// entries must not overlap once sorted by start offset.
package schedule
