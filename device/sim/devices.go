package sim

// PS2 models the output side of an 8042 keyboard controller.
type PS2 struct {
	queue []uint8
	last  uint8
}

// Push queues scancodes for the kernel to read from the data port.
func (k *PS2) Push(codes ...uint8) {
	k.queue = append(k.queue, codes...)
}

// Pending returns the number of unread scancodes.
func (k *PS2) Pending() int {
	return len(k.queue)
}

func (k *PS2) status() uint8 {
	if len(k.queue) != 0 {
		return 0x01
	}
	return 0
}

// read pops the next scancode. Reading an empty buffer returns the last
// value again, like the real controller.
func (k *PS2) read() uint8 {
	if len(k.queue) != 0 {
		k.last, k.queue = k.queue[0], k.queue[1:]
	}
	return k.last
}

// PIT records how channel 0 of the 8253/8254 timer was programmed.
type PIT struct {
	// Command holds the last mode/command byte.
	Command uint8

	reload uint16
	gotLow bool
	writes int
}

func (t *PIT) writeCommand(val uint8) {
	t.Command = val
	t.gotLow = false
}

// writeData handles channel 0 reload writes in lobyte/hibyte access mode.
func (t *PIT) writeData(val uint8) {
	t.writes++
	if !t.gotLow {
		t.reload = t.reload&0xff00 | uint16(val)
		t.gotLow = true
		return
	}
	t.reload = t.reload&0x00ff | uint16(val)<<8
	t.gotLow = false
}

// Divisor returns the programmed channel 0 reload value. A reload value of 0
// means 65536 on real hardware.
func (t *PIT) Divisor() uint16 {
	return t.reload
}

// DataWrites returns the number of bytes written to the channel 0 port.
func (t *PIT) DataWrites() int {
	return t.writes
}
