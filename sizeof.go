package kernel

import "unsafe"

// These constants size the cache-line padding of isrPendQueue (ingress.go).
const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 64 bytes is standard for x86-64.
	// 128 bytes is standard for Apple Silicon (M1/M2/M3) and other ARM64.
	// We use 128 to satisfy the largest common alignment requirement.
	sizeOfCacheLine = 128

	// sizeOfAtomicUint64 is the size of an atomic.Uint64 variable.
	sizeOfAtomicUint64 = 8
)

// SizeReport summarizes the host-build memory footprint of one kernel
// object kind, in bytes. A real port reports the same figures computed
// from its target's struct layout instead of Go's; both exist to catch a
// config (stack size, object count) that would overrun a fixed-RAM target
// before it ships, the Go-native equivalent of the source's per-target
// static_assert sizeof checks.
type SizeReport struct {
	Name  string
	Bytes uintptr
}

// SizeOf reports the in-memory size of the kernel's core object kinds.
// It does not include the size of a task's Port-allocated stack (Port is
// architecture-specific; see Config.DefaultStackSize for the configured
// budget instead).
func SizeOf() []SizeReport {
	return []SizeReport{
		{Name: "Task", Bytes: unsafe.Sizeof(Task{})},
		{Name: "Mutex", Bytes: unsafe.Sizeof(Mutex{})},
		{Name: "Sem", Bytes: unsafe.Sizeof(Sem{})},
		{Name: "Cond", Bytes: unsafe.Sizeof(Cond{})},
		{Name: "OnceFlag", Bytes: unsafe.Sizeof(OnceFlag{})},
		{Name: "waitQueue", Bytes: unsafe.Sizeof(waitQueue{})},
		{Name: "System", Bytes: unsafe.Sizeof(System{})},
	}
}
