package hw

// txRetry gates transmit retries for controllers without a TX-done
// interrupt. A failed transmit is retried only after the next poll tick,
// so one service pass ends when the chip buffers stay full.
type txRetry struct {
	pending bool
	due     bool
}

// fail records a transmit the hardware refused.
func (r *txRetry) fail() {
	r.pending = true
	r.due = false
}

// tick marks a pending retry as due.
func (r *txRetry) tick() {
	if r.pending {
		r.due = true
	}
}

// take reports whether a retry should be raised now, consuming it.
func (r *txRetry) take() bool {
	if !r.pending || !r.due {
		return false
	}
	r.pending, r.due = false, false
	return true
}

func (r *txRetry) clear() { r.pending, r.due = false, false }
