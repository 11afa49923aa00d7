// Package device defines the contract between the kernel and its device
// drivers.
package device

import (
	"io"

	"github.com/BigBoySanchez/rotOS/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprint.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the hal package.
type DetectOrder int8

// The order that the hal package probes drivers in.
const (
	// DetectOrderEarly is used by drivers that other drivers depend on,
	// such as the system console.
	DetectOrderEarly DetectOrder = iota - 2

	// DetectOrderBeforeIRQ is used by drivers that must be initialized
	// before any interrupt-driven device.
	DetectOrderBeforeIRQ

	// DetectOrderIRQ is used by drivers that attach to an IRQ line.
	DetectOrderIRQ

	// DetectOrderLast is used by drivers that require all other drivers
	// to be initialized first.
	DetectOrderLast
)

// DriverInfo is a driver-defined struct that is passed to calls to
// RegisterDriver.
type DriverInfo struct {
	// Order specifies at which stage of the hardware detection the probe
	// function should be invoked.
	Order DetectOrder

	// Probe is invoked to check whether the hardware the driver manages
	// is present and returns a driver for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

// MaxDrivers is the capacity of the driver registry.
const MaxDrivers = 16

var (
	errRegistryFull = &kernel.Error{Module: "device", Message: "driver registry is full"}

	// The registry is a fixed array so that drivers can be registered
	// before the kernel has a heap.
	registeredDrivers [MaxDrivers]*DriverInfo
	numDrivers        int
)

// RegisterDriver adds the supplied driver info to the list of registered
// drivers. Registering the same info twice is a no-op.
func RegisterDriver(info *DriverInfo) *kernel.Error {
	for _, existing := range registeredDrivers[:numDrivers] {
		if existing == info {
			return nil
		}
	}

	if numDrivers == MaxDrivers {
		return errRegistryFull
	}

	registeredDrivers[numDrivers] = info
	numDrivers++
	return nil
}

// DriverList returns the list of registered drivers. The returned list
// shares storage with the registry.
func DriverList() DriverInfoList {
	return registeredDrivers[:numDrivers]
}
