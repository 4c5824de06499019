package windbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/windbg/internal/winapi"
)

func filledContext() *winapi.Context {
	ctx := winapi.NewContext()
	for i, name := range GPRNames {
		*gprFields(ctx)[name] = uint64(0x1000 + i)
	}
	ctx.Rip = 0xFEED
	ctx.EFlags = 0x246
	ctx.SegCs = 0x33
	ctx.Dr7 = 0x55
	return ctx
}

func TestNewRegisters(t *testing.T) {
	regs := newRegisters(filledContext())

	require.Len(t, regs, 16)
	for i, name := range GPRNames {
		assert.Equal(t, uint64(0x1000+i), regs[name], name)
	}
	_, hasRip := regs["Rip"]
	assert.False(t, hasRip, "Rip is not part of the handler register file")
}

func TestApplyRegistersMergesOnlyGPRs(t *testing.T) {
	ctx := filledContext()
	regs := newRegisters(ctx)
	regs["Rax"] = 0x1111111111111111
	regs["R15"] = 0x2222222222222222

	applyRegisters(ctx, regs)

	assert.Equal(t, uint64(0x1111111111111111), ctx.Rax)
	assert.Equal(t, uint64(0x2222222222222222), ctx.R15)
	assert.Equal(t, uint64(0x1004), ctx.Rsp)

	// Everything outside the 16 GPRs is preserved verbatim.
	assert.Equal(t, uint64(0xFEED), ctx.Rip)
	assert.Equal(t, uint32(0x246), ctx.EFlags)
	assert.Equal(t, uint16(0x33), ctx.SegCs)
	assert.Equal(t, uint64(0x55), ctx.Dr7)
}

func TestApplyRegistersPartialMap(t *testing.T) {
	ctx := filledContext()

	applyRegisters(ctx, Registers{"Rbx": 7})

	assert.Equal(t, uint64(7), ctx.Rbx)
	assert.Equal(t, uint64(0x1000), ctx.Rax, "missing entries leave the context alone")
}

func TestIdentityRoundTrip(t *testing.T) {
	ctx := filledContext()
	want := *ctx

	applyRegisters(ctx, newRegisters(ctx))

	assert.Equal(t, want, *ctx, "identity merge must be byte-identical")
}

func TestCloneIndependent(t *testing.T) {
	regs := sampleRegisters()
	clone := regs.Clone()
	clone["Rax"] = 99

	assert.Equal(t, uint64(1), regs["Rax"])
}
