// Package trainer drives the training of the LPCNet excitation model through
// callbacks. It also provides checkpointing and the progressive
// sparsification schedule of the recurrent weights.
package trainer
