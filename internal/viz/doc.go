// Package viz renders live hybrid-system trajectories in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea
// framework:
//
//   - [Model]: live view stepping the simulator between frames
//   - [Canvas]: Braille-based pixel canvas for trajectory rendering
//
// Discrete events surface directly in the view: the event log panel
// lists recent dispatches and the witness strip chart shows the sign
// changes driving them.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	Tab   - Cycle tunable parameters
//	Up/Dn - Adjust selected parameter
//	?     - Show help overlay
package viz
