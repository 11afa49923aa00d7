// Package hal probes the registered device drivers and keeps track of the
// devices that were successfully initialized.
package hal

import (
	"github.com/BigBoySanchez/rotOS/device"
	"github.com/BigBoySanchez/rotOS/device/tty"
	"github.com/BigBoySanchez/rotOS/device/video/console"
	"github.com/BigBoySanchez/rotOS/kernel/kfmt"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole console.Device
	activeTTY     tty.Device

	// activeDrivers tracks all initialized device drivers.
	activeDrivers    [device.MaxDrivers]device.Driver
	numActiveDrivers int
}

// prefixBuf is a fixed-size io.Writer used to render the per-driver log
// prefix. Output beyond its capacity is dropped.
type prefixBuf struct {
	data [64]byte
	len  int
}

func (b *prefixBuf) Reset() { b.len = 0 }

func (b *prefixBuf) Bytes() []byte { return b.data[:b.len] }

func (b *prefixBuf) Write(p []byte) (int, error) {
	b.len += copy(b.data[b.len:], p)
	return len(p), nil
}

var (
	devices managedDevices

	// The probe log state lives in package variables so that probing does
	// not allocate.
	probePrefix prefixBuf
	probeLog    kfmt.PrefixWriter
)

// ActiveTTY returns the currently active TTY.
func ActiveTTY() tty.Device {
	return devices.activeTTY
}

// ActiveConsole returns the currently active console.
func ActiveConsole() console.Device {
	return devices.activeConsole
}

// ActiveDrivers returns the drivers that were successfully initialized, in
// initialization order.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers[:devices.numActiveDrivers]
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers.
func DetectHardware() {
	// Get driver list and sort by detection priority
	drivers := device.DriverList()
	sortByOrder(drivers)

	probe(drivers)
}

// sortByOrder is an in-place stable insertion sort of the driver list.
func sortByOrder(list device.DriverInfoList) {
	for i := 1; i < list.Len(); i++ {
		for j := i; j > 0 && list.Less(j, j-1); j-- {
			list.Swap(j, j-1)
		}
	}
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		probePrefix.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&probePrefix, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		probeLog = kfmt.PrefixWriter{Sink: kfmt.Console, Prefix: probePrefix.Bytes()}

		err := drv.DriverInit(&probeLog)
		probeLog.EndLine()
		if err != nil {
			kfmt.Fprintf(&probeLog, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&probeLog, "initialized\n")
		onDriverInit(drv)
		if devices.numActiveDrivers < len(devices.activeDrivers) {
			devices.activeDrivers[devices.numActiveDrivers] = drv
			devices.numActiveDrivers++
		}
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case console.Device:
		if devices.activeConsole != nil {
			return
		}

		devices.activeConsole = drvImpl
		if devices.activeTTY != nil {
			linkTTYToConsole()
		}
	case tty.Device:
		if devices.activeTTY != nil {
			return
		}

		devices.activeTTY = drvImpl
		if devices.activeConsole != nil {
			linkTTYToConsole()
		}
	}
}

// linkTTYToConsole connects the active TTY device to the active console device
// and makes it the kernel's output sink. Any output buffered so far is
// replayed to the terminal.
func linkTTYToConsole() {
	devices.activeTTY.AttachTo(devices.activeConsole)
	kfmt.SetOutputSink(devices.activeTTY)
}
