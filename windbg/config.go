package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	kindHardware = "hw"
	kindSoftware = "sw"
)

type breakpointSpec struct {
	Addr uint64 `yaml:"addr"`
	Kind string `yaml:"kind"`
	Slot int    `yaml:"slot"`
}

type breakpointFile struct {
	Breakpoints []breakpointSpec `yaml:"breakpoints"`
}

// loadBreakpointFile reads a YAML breakpoint list:
//
//	breakpoints:
//	  - addr: 0x7ff6a1b2c3d4
//	    kind: hw
//	    slot: 0
//	  - addr: 0x7ff6a1b2c3f0
//	    kind: sw
func loadBreakpointFile(path string) ([]breakpointSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f breakpointFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %v", path, err)
	}
	for i, spec := range f.Breakpoints {
		if err := validateSpec(spec); err != nil {
			return nil, fmt.Errorf("%s: breakpoint %d: %v", path, i, err)
		}
	}
	return f.Breakpoints, nil
}

func validateSpec(spec breakpointSpec) error {
	if spec.Addr == 0 {
		return fmt.Errorf("addr missing or zero")
	}
	switch spec.Kind {
	case kindHardware:
		if spec.Slot < 0 || spec.Slot > 3 {
			return fmt.Errorf("slot %d out of range 0..3", spec.Slot)
		}
	case kindSoftware:
	default:
		return fmt.Errorf("kind %q is not hw or sw", spec.Kind)
	}
	return nil
}

// parseHardwareSpec parses a slot:addr flag value.
func parseHardwareSpec(arg string) (breakpointSpec, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return breakpointSpec{}, fmt.Errorf("hardware breakpoint %q: want slot:addr", arg)
	}
	slot, err := strconv.Atoi(parts[0])
	if err != nil || slot < 0 || slot > 3 {
		return breakpointSpec{}, fmt.Errorf("hardware breakpoint %q: bad slot %q", arg, parts[0])
	}
	addr, err := parseAddr(parts[1])
	if err != nil {
		return breakpointSpec{}, err
	}
	return breakpointSpec{Addr: addr, Kind: kindHardware, Slot: slot}, nil
}

func parseAddr(arg string) (uint64, error) {
	addr, err := strconv.ParseUint(arg, 0, 64)
	if err != nil || addr == 0 {
		return 0, fmt.Errorf("bad breakpoint address %q", arg)
	}
	return addr, nil
}
