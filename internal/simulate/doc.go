// Package simulate drives a [hybrid.System] through time. The
// [Simulator] alternates continuous integration with witness watching:
// each candidate step is checked for qualifying witness sign changes,
// a triggering step is rolled back and the earliest crossing isolated
// by bisection to a configured time tolerance, and the scheduled
// events are dispatched at the isolated instant before integration
// resumes.
//
// Runs are strictly sequential and deterministic: the same system,
// context, and configuration always produce the same trajectory and
// event log. A sliding-window bound on event rate turns Zeno-like
// accumulations into a clean failure instead of a stall.
package simulate
