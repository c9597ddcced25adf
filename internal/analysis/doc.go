// Package analysis provides post-run analysis of stored trajectories:
// frequency content of state traces and statistics over dispatched
// event sequences, including a Zeno-accumulation indicator.
package analysis
