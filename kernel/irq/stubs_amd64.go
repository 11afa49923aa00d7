package irq

import "github.com/BigBoySanchez/rotOS/kernel/gate"

// entryStubFn is mocked by tests.
var entryStubFn = gate.EntryStub
