// Package system provides the two concrete [hybrid.System] variants: leaf
// systems built on [LeafBase], which supply their derivative rule
// directly, and [Diagram], a DAG of child systems wired together through
// explicit port connections.
//
// Diagram assembly is split from simulation: a [DiagramBuilder] collects
// children, connections, and exported ports, and Build validates the
// whole configuration (port ranges, size mismatches, unconnected inputs,
// connection cycles) before any simulation can run.
package system
