package sim

type initStage uint8

const (
	stageUninitialized initStage = iota
	stageExpectICW2
	stageExpectICW3
	stageExpectICW4
	stageReady
)

// chip models a single 8259A in x86 mode. Only the features the kernel
// uses are modelled: the ICW1-4 initialization sequence, the mask register
// and (non-)specific EOI. Priorities are fixed with line 0 highest.
type chip struct {
	stage    initStage
	needICW4 bool

	offset   uint8
	cascade  uint8
	mode8086 bool

	imr uint8
	irr uint8
	isr uint8
}

func (c *chip) writeCommand(val uint8) {
	if val&0x10 != 0 {
		// ICW1 restarts initialization and clears the mask register.
		*c = chip{stage: stageExpectICW2, needICW4: val&0x01 != 0}
		return
	}

	if c.stage != stageReady {
		return
	}

	// OCW2 has bits 3 and 4 clear; OCW3 reads are not modelled.
	if val&0x18 != 0 || val&0x20 == 0 {
		return
	}

	if val&0x40 != 0 {
		c.isr &^= 1 << (val & 0x07)
		return
	}
	c.isr &^= c.isr & -c.isr
}

func (c *chip) writeData(val uint8) {
	switch c.stage {
	case stageExpectICW2:
		c.offset = val &^ 0x07
		c.stage = stageExpectICW3
	case stageExpectICW3:
		c.cascade = val
		c.stage = stageReady
		if c.needICW4 {
			c.stage = stageExpectICW4
		}
	case stageExpectICW4:
		c.mode8086 = val&0x01 != 0
		c.stage = stageReady
	default:
		c.imr = val
	}
}

// select returns the highest priority requested line that is unmasked and
// not blocked by an in-service line of equal or higher priority.
func (c *chip) selectLine(requests uint8) (uint8, bool) {
	if c.stage != stageReady {
		return 0, false
	}

	pending := requests &^ c.imr
	for line := uint8(0); line < 8; line++ {
		bit := uint8(1) << line
		if c.isr&bit != 0 {
			return 0, false
		}
		if pending&bit != 0 {
			return line, true
		}
	}
	return 0, false
}

// DualPIC models the master/slave 8259A cascade with the slave attached to
// master line 2.
type DualPIC struct {
	master chip
	slave  chip
}

// Raise latches an interrupt request on line (0-15).
func (p *DualPIC) Raise(line uint8) {
	switch {
	case line < 8:
		p.master.irr |= 1 << line
	case line < 16:
		p.slave.irr |= 1 << (line - 8)
	}
}

// InterruptAck emulates the CPU's interrupt acknowledge cycle. It returns the
// vector of the interrupt the cascade delivers next, marking it in service,
// or false if nothing can be delivered.
func (p *DualPIC) InterruptAck() (uint8, bool) {
	slaveLine, slaveReady := p.slave.selectLine(p.slave.irr)

	requests := p.master.irr
	if slaveReady {
		requests |= 1 << 2
	}

	line, ok := p.master.selectLine(requests)
	if !ok {
		return 0, false
	}

	p.master.isr |= 1 << line
	p.master.irr &^= 1 << line
	if line == 2 && slaveReady {
		p.slave.isr |= 1 << slaveLine
		p.slave.irr &^= 1 << slaveLine
		return p.slave.offset + slaveLine, true
	}
	return p.master.offset + line, true
}

// Initialized returns true once both controllers completed the ICW sequence
// in 8086 mode with the standard cascade wiring.
func (p *DualPIC) Initialized() bool {
	return p.master.stage == stageReady && p.slave.stage == stageReady &&
		p.master.mode8086 && p.slave.mode8086 &&
		p.master.cascade == 1<<2 && p.slave.cascade == 2
}

// Offsets returns the vector offsets programmed via ICW2.
func (p *DualPIC) Offsets() (master, slave uint8) {
	return p.master.offset, p.slave.offset
}

// Mask returns both mask registers; bit N masks line N.
func (p *DualPIC) Mask() uint16 {
	return uint16(p.slave.imr)<<8 | uint16(p.master.imr)
}

// SetMask overwrites both mask registers without going through the ports.
func (p *DualPIC) SetMask(mask uint16) {
	p.master.imr = uint8(mask)
	p.slave.imr = uint8(mask >> 8)
}

// InService returns true if line is marked in service at its controller.
func (p *DualPIC) InService(line uint8) bool {
	if line < 8 {
		return p.master.isr&(1<<line) != 0
	}
	return p.slave.isr&(1<<(line-8)) != 0
}
