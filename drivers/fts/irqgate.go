package fts

// Interrupt gate: a disable-depth counter in front of the host interrupt
// line. The line is physically disabled iff the counter is above zero. All
// transitions take the same mutex, whether the caller is the protocol loop
// or interrupt-adjacent code.

// DisableInterrupt gates the interrupt line, disabling it physically only on
// the 0→1 transition.
func (d *Device) DisableInterrupt() {
	d.gateMu.Lock()
	if d.depth == 0 && d.irq != nil {
		d.irq.Disable()
	}
	d.depth++
	d.gateMu.Unlock()
}

// DisableInterruptAsync is the variant safe to call from interrupt-adjacent
// contexts. With the unified locking it shares the implementation with
// DisableInterrupt; the name is kept so call sites state their context.
func (d *Device) DisableInterruptAsync() {
	d.DisableInterrupt()
}

// EnableInterrupt drains the disable counter to zero, re-enabling the line
// physically once per outstanding disable. Draining (rather than a single
// decrement) is deliberate: it restores the line no matter how many disables
// piled up during error recovery.
func (d *Device) EnableInterrupt() {
	d.gateMu.Lock()
	for d.depth > 0 {
		if d.irq != nil {
			d.irq.Enable()
		}
		d.depth--
	}
	d.gateMu.Unlock()
}

// EnableInterruptOnce undoes exactly one disable, the symmetric counterpart
// to DisableInterrupt for callers pairing disables and enables strictly.
func (d *Device) EnableInterruptOnce() {
	d.gateMu.Lock()
	if d.depth > 0 {
		if d.irq != nil {
			d.irq.Enable()
		}
		d.depth--
	}
	d.gateMu.Unlock()
}

// ResetInterruptCount zeroes the counter without touching the hardware,
// used to re-establish a baseline after probe or reattach.
func (d *Device) ResetInterruptCount() {
	d.gateMu.Lock()
	d.depth = 0
	d.gateMu.Unlock()
}

// InterruptDepth reports the current disable depth.
func (d *Device) InterruptDepth() int {
	d.gateMu.Lock()
	defer d.gateMu.Unlock()
	return d.depth
}
