package trainer

import "sort"

// Logs maps metric names to values.
type Logs map[string]float64

// Keys lists the metric names in order.
func (l Logs) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone copies the logs.
func (l Logs) Clone() Logs {
	o := make(Logs, len(l))
	for k, v := range l {
		o[k] = v
	}
	return o
}

// History accumulates the logs of every finished epoch.
type History struct {
	Epoch   []int
	History map[string][]float64
}

// Append records the logs of epoch.
func (h *History) Append(epoch int, logs Logs) {
	if h.History == nil {
		h.History = make(map[string][]float64)
	}
	h.Epoch = append(h.Epoch, epoch)
	for k, v := range logs {
		h.History[k] = append(h.History[k], v)
	}
}

// Last returns the logs of the most recent epoch, or nil.
func (h *History) Last() Logs {
	if len(h.Epoch) == 0 {
		return nil
	}
	o := make(Logs)
	for k, v := range h.History {
		if len(v) > 0 {
			o[k] = v[len(v)-1]
		}
	}
	return o
}
