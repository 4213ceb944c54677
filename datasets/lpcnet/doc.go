// Package lpcnet loads LPCNet training data: a float32 feature stream and a
// stream of 4 interleaved mu-law channels per sample. It cuts both into aligned
// chunks of frames, clears the unused feature band, pads every chunk with
// context rows from its neighbours and derives the pitch embedding indices.
package lpcnet
