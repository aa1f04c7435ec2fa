package liveness

// HistoryCapacity is about one second of frames at 30 fps
const HistoryCapacity = 30

// History is a fixed-capacity ring of FaceState; pushing past capacity evicts the oldest
type History struct {
	buf   [HistoryCapacity]FaceState
	start int
	n     int
}

// Push appends s, evicting the oldest entry when full
func (h *History) Push(s FaceState) {
	if h.n < HistoryCapacity {
		h.buf[(h.start+h.n)%HistoryCapacity] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % HistoryCapacity
}

func (h *History) Len() int {
	return h.n
}

// Last returns the newest entry
func (h *History) Last() (FaceState, bool) {
	if h.n == 0 {
		return FaceState{}, false
	}
	return h.buf[(h.start+h.n-1)%HistoryCapacity], true
}

// States returns a copy, oldest first
func (h *History) States() []FaceState {
	out := make([]FaceState, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%HistoryCapacity]
	}
	return out
}

func (h *History) Reset() {
	*h = History{}
}
