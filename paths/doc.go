// Package paths is a block-batched Monte Carlo path engine.
//
// Processes declare the dates and risk factors they need on a shared FeatureRegistry,
// the registry freezes them into a time grid and factor map, and the Engine then runs
// every diffusion followed by every payoff over disjoint PathBlocks in parallel.
package paths
