package windbg

import "gni.dev/windbg/internal/winapi"

// Registers is the general-purpose register file passed to breakpoint
// handlers: the 16 x86_64 GPR names bound to their 64-bit values. Handlers
// may rewrite any entry; everything else in the thread context (segment
// selectors, flags, FP state) is preserved from the pre-call snapshot,
// except that the event loop sets the resume flag and, on a software
// breakpoint hit, rewinds Rip by one.
type Registers map[string]uint64

// GPRNames lists the register names present in every Registers map.
var GPRNames = []string{
	"Rax", "Rbx", "Rcx", "Rdx",
	"Rsp", "Rbp", "Rsi", "Rdi",
	"R8", "R9", "R10", "R11",
	"R12", "R13", "R14", "R15",
}

// Clone returns an independent copy.
func (r Registers) Clone() Registers {
	out := make(Registers, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func gprFields(ctx *winapi.Context) map[string]*uint64 {
	return map[string]*uint64{
		"Rax": &ctx.Rax,
		"Rbx": &ctx.Rbx,
		"Rcx": &ctx.Rcx,
		"Rdx": &ctx.Rdx,
		"Rsp": &ctx.Rsp,
		"Rbp": &ctx.Rbp,
		"Rsi": &ctx.Rsi,
		"Rdi": &ctx.Rdi,
		"R8":  &ctx.R8,
		"R9":  &ctx.R9,
		"R10": &ctx.R10,
		"R11": &ctx.R11,
		"R12": &ctx.R12,
		"R13": &ctx.R13,
		"R14": &ctx.R14,
		"R15": &ctx.R15,
	}
}

// newRegisters extracts the GPR file from a captured thread context.
func newRegisters(ctx *winapi.Context) Registers {
	out := make(Registers, len(GPRNames))
	for name, p := range gprFields(ctx) {
		out[name] = *p
	}
	return out
}

// applyRegisters writes the (possibly mutated) register map back into ctx,
// touching only the 16 GPRs. Rip, EFlags and every other field keep the
// values captured from the thread; the event loop applies its own Rip and
// resume-flag adjustments after the merge, never here.
func applyRegisters(ctx *winapi.Context, r Registers) {
	for name, p := range gprFields(ctx) {
		if v, ok := r[name]; ok {
			*p = v
		}
	}
}
