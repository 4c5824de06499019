package winapi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestContextMatchesSDKLayout(t *testing.T) {
	// The amd64 _CONTEXT is 1232 bytes; a drifted field would corrupt the
	// kernel's writes into it.
	assert.Equal(t, uintptr(1232), unsafe.Sizeof(Context{}))

	var ctx Context
	assert.Equal(t, uintptr(0x30), unsafe.Offsetof(ctx.ContextFlags))
	assert.Equal(t, uintptr(0x44), unsafe.Offsetof(ctx.EFlags))
	assert.Equal(t, uintptr(0x48), unsafe.Offsetof(ctx.Dr0))
	assert.Equal(t, uintptr(0x78), unsafe.Offsetof(ctx.Rax))
	assert.Equal(t, uintptr(0xF8), unsafe.Offsetof(ctx.Rip))
}

func TestNewContextAligned(t *testing.T) {
	for i := 0; i < 32; i++ {
		ctx := NewContext()
		assert.Zero(t, uintptr(unsafe.Pointer(ctx))&15)
	}
}

func TestResumeFlagIsRFNotTF(t *testing.T) {
	// Bit 16 of EFlags: the resume flag, which suppresses exactly one
	// instruction-boundary breakpoint fault on the next instruction. The
	// trap flag (bit 8) would single-step instead.
	assert.Equal(t, 0x10000, ResumeFlag)
	assert.Equal(t, 0x100, TrapFlag)
	assert.NotEqual(t, ResumeFlag, TrapFlag)
}
