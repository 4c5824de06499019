package windbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDr7Enable(t *testing.T) {
	tests := []struct {
		addrs [4]uint64
		want  uint64
	}{
		{[4]uint64{}, 0},
		{[4]uint64{0x1000, 0, 0, 0}, 0x01},
		{[4]uint64{0, 0x1000, 0, 0}, 0x04},
		{[4]uint64{0, 0, 0x1000, 0}, 0x10},
		{[4]uint64{0, 0, 0, 0x1000}, 0x40},
		{[4]uint64{0x1000, 0, 0x2000, 0}, 0x11},
		{[4]uint64{0x1000, 0x2000, 0x3000, 0x4000}, 0x55},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, dr7Enable(test.addrs), "addrs %#x", test.addrs)
	}
}

func TestDr7EnableLeavesTypeBitsZero(t *testing.T) {
	// RW/LEN bits 16..31 stay zero: execute type, length 1.
	control := dr7Enable([4]uint64{0x1000, 0x2000, 0x3000, 0x4000})
	assert.Zero(t, control&^uint64(0xFF))
}
