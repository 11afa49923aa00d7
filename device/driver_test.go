package device

import (
	"sort"
	"testing"
)

func resetRegistry() {
	registeredDrivers = [MaxDrivers]*DriverInfo{}
	numDrivers = 0
}

func TestDriverInfoListSorting(t *testing.T) {
	defer resetRegistry()
	resetRegistry()

	origlist := []*DriverInfo{
		{Order: DetectOrderIRQ},
		{Order: DetectOrderLast},
		{Order: DetectOrderBeforeIRQ},
		{Order: DetectOrderEarly},
	}

	for _, drv := range origlist {
		if err := RegisterDriver(drv); err != nil {
			t.Fatal(err)
		}
	}

	registeredList := DriverList()
	if exp, got := len(origlist), len(registeredList); got != exp {
		t.Fatalf("expected DriverList() to return %d entries; got %d", exp, got)
	}

	sort.Sort(registeredList)
	expOrder := []int{3, 2, 0, 1}
	for i, exp := range expOrder {
		if registeredList[i] != origlist[exp] {
			t.Errorf("expected sorted entry %d to be %v; got %v", i, origlist[exp], registeredList[i])
		}
	}
}

func TestRegisterDriverLimits(t *testing.T) {
	defer resetRegistry()
	resetRegistry()

	info := &DriverInfo{Order: DetectOrderIRQ}
	for i := 0; i < 3; i++ {
		if err := RegisterDriver(info); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(DriverList()); got != 1 {
		t.Fatalf("expected duplicate registrations to be ignored; got %d entries", got)
	}

	for i := 1; i < MaxDrivers; i++ {
		if err := RegisterDriver(&DriverInfo{}); err != nil {
			t.Fatalf("[driver %d] unexpected error: %v", i, err)
		}
	}
	if err := RegisterDriver(&DriverInfo{}); err != errRegistryFull {
		t.Fatalf("expected errRegistryFull; got %v", err)
	}
	if got := len(DriverList()); got != MaxDrivers {
		t.Fatalf("expected %d entries; got %d", MaxDrivers, got)
	}
}
