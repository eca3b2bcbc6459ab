// Package dynastar plans a route for a single drone across a square grid whose
// occupancy is only known through noisy sampling.
//
// It exposes two main entry points:
//
//   - Search: run the planner to completion and get a Result.
//   - Stepper: iterate the search one expansion at a time to drive UIs or debugging tools.
//
// Every expansion queries a Sensor for each candidate move and then advances the
// Environment's dynamic obstacles by one random-walk tick, so occupancy estimates
// go stale as the search proceeds. All randomness flows through explicitly passed
// *rand.Rand handles; nothing in this package touches a global source.
package dynastar
