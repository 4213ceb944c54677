package lpcnet

// Channels are the four de-interleaved per-sample mu-law streams. Each stream
// is stored flat with shape (chunks, PCMChunkSize, 1).
type Channels struct {
	Sig    []byte // speech signal
	Pred   []byte // linear prediction estimate
	InExc  []byte // excitation fed to the model
	OutExc []byte // excitation the model must predict
}

// Len is the number of samples in every stream.
func (c Channels) Len() int {
	return len(c.OutExc)
}

// Deinterleave splits 4-byte records into the four streams. A trailing partial
// record is dropped.
func Deinterleave(data []byte) (c Channels) {
	n := len(data) / 4
	c.Sig = make([]byte, n)
	c.Pred = make([]byte, n)
	c.InExc = make([]byte, n)
	c.OutExc = make([]byte, n)
	for i := 0; i < n; i++ {
		c.Sig[i] = data[4*i]
		c.Pred[i] = data[4*i+1]
		c.InExc[i] = data[4*i+2]
		c.OutExc[i] = data[4*i+3]
	}
	return
}

// Interleave is the inverse of Deinterleave.
func Interleave(c Channels) (data []byte) {
	n := c.Len()
	data = make([]byte, 4*n)
	for i := 0; i < n; i++ {
		data[4*i] = c.Sig[i]
		data[4*i+1] = c.Pred[i]
		data[4*i+2] = c.InExc[i]
		data[4*i+3] = c.OutExc[i]
	}
	return
}
