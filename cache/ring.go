package cache

// ring is a fixed-size FIFO of keys. It is not safe for concurrent use;
// Store guards it with its own lock.
type ring struct {
	buf  []string
	head int // index of the oldest key
	n    int
}

func newRing(size int) ring {
	return ring{buf: make([]string, size)}
}

func (r *ring) len() int {
	return r.n
}

// push appends k. The caller must make room first when the ring is full.
func (r *ring) push(k string) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = k
	r.n++
	return true
}

func (r *ring) pop() (string, bool) {
	if r.n == 0 {
		return "", false
	}
	k := r.buf[r.head]
	r.buf[r.head] = ""
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return k, true
}

// items returns the keys oldest first.
func (r *ring) items() []string {
	out := make([]string, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}
