// Package datasets implements the vote tallies the LPCNet excitation model is
// trained from. Training counts how often each input value co-occurs with each
// output class, without backpropagation.
package datasets
