// Package main provides train_lpcnet, which trains an LPCNet excitation
// predictor from a feature file and the matching interleaved mu-law data
// file, writing a checkpoint after every epoch.
//
// Usage:
//
//	train_lpcnet [flags] <features.f32> <data.u8> <prefix>
//
// Checkpoints are named <prefix>_01.h5, <prefix>_02.h5 and so on. The
// effective configuration is written to <prefix>_config.yaml.
package main
