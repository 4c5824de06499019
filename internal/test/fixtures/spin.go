// spin prints the address of its hot function and then calls it in a loop,
// about once a millisecond, giving an attaching debugger a stable address
// to trap.
package main

import (
	"fmt"
	"reflect"
	"time"
)

//go:noinline
func tick(n uint64) uint64 {
	return n + 1
}

func main() {
	fmt.Printf("%#x\n", reflect.ValueOf(tick).Pointer())

	var n uint64
	for {
		n = tick(n)
		time.Sleep(time.Millisecond)
	}
}
