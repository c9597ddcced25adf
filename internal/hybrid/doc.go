// Package hybrid defines the core value types and capability contracts for
// simulating hybrid dynamical systems: systems whose state evolves
// continuously under ordinary differential equations but also undergoes
// discrete, instantaneous transitions when a witness function changes sign.
//
// The central pieces are:
//
//   - [State]: a continuous state vector plus discrete-state groups and
//     opaque abstract slots
//   - [Context]: the complete, self-contained snapshot of one system's
//     state, time, and fixed parameters
//   - [System]: the unit of simulable behavior (leaf systems and diagrams
//     both implement it)
//   - [WitnessFunction]: a scalar function of a Context whose qualifying
//     sign change schedules a discrete [Event]
//   - [Integrator]: advances continuous state across a time interval
//
// A Context is owned exclusively by its caller. Cloning a Context is a
// cheap value copy, so independent trajectories are obtained by cloning
// and simulating the clone.
package hybrid
