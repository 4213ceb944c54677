// Package lpcnet implements the excitation predictor trained by train_lpcnet.
//
// The network predicts the mu-law output excitation byte of every sample from
// the sample-rate input bytes of the same sample and the conditioning
// features of its frame. It is trained without backpropagation:
// every batch adds weighted votes to count tables, and the weights are the
// pointwise mutual information between each input and the output class
// derived from those counts.
package lpcnet
