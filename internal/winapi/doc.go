// Package winapi declares the slice of the Windows debug API this module
// needs and that golang.org/x/sys/windows does not export: the debug event
// stream, thread context transfer and debugger attachment.
package winapi
