// Package bandit provides the learned backend selection policy for coge.
//
// # Reading Guide
//
// Start with these files:
//   - arm.go: Arm and State, the persisted learning model keyed by "backend:model"
//   - reward.go: reward normalisation and time decay (pure functions over State)
//   - selector.go: epsilon-greedy arm selection and the random-race fallback
//   - policy.go: strategy dispatch (manual / learned / fallback)
//   - outcome.go: folding race outcomes back into the State
//
// # Learning Loop
//
// Policy loads the State through a Store and ranks candidate arms with the
// Selector. After a race settles, Recorder folds every participant's latency
// and success into its arm and recomputes every reward, because reward is
// normalised against the current latency extremes of the whole State.
//
// Randomness is always injected (see rng.go) so selection is reproducible
// under a fixed seed.
package bandit
