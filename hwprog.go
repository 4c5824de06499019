package windbg

// dr7Enable computes the Dr7 control value for the given slot addresses:
// the local-enable bit (bit 2i) of every occupied slot. The RW/LEN fields
// stay zero, which selects execute-type, length-1 breakpoints. An empty
// slot stays disabled, so its zeroed Dr register cannot trap address 0.
func dr7Enable(addrs [4]uint64) uint64 {
	var control uint64
	for i, addr := range addrs {
		if addr != 0 {
			control |= 1 << (2 * uint(i))
		}
	}
	return control
}
