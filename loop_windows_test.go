package windbg

import (
	"bufio"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/windbg/internal/memory"
	"gni.dev/windbg/internal/test"
)

func TestMain(m *testing.M) {
	os.Exit(test.Run(m))
}

// startSpin launches the spin fixture and returns its pid and the address
// of the function it executes in a loop.
func startSpin(t *testing.T) (uint32, uint64) {
	t.Helper()

	cmd := exec.Command(test.Build("spin"))
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	addr, err := strconv.ParseUint(strings.TrimSpace(line), 0, 64)
	require.NoError(t, err)
	require.NotZero(t, addr)

	return uint32(cmd.Process.Pid), addr
}

func startSession(t *testing.T, sess *Session) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- sess.Start() }()
	t.Cleanup(func() {
		sess.Stop()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
		}
	})
	return done
}

func waitHit(t *testing.T, hits chan Registers) Registers {
	t.Helper()
	select {
	case regs := <-hits:
		return regs
	case <-time.After(15 * time.Second):
		t.Fatal("breakpoint did not fire")
		return nil
	}
}

func waitDone(t *testing.T, done chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("event loop did not exit after Stop")
	}
}

func TestSoftwareBreakpointRoundTrip(t *testing.T) {
	pid, addr := startSpin(t)
	resetCurrent()

	sess, err := CreateDebugger(pid)
	require.NoError(t, err)

	hits := make(chan Registers, 16)
	handler := func(regs Registers) Registers {
		select {
		case hits <- regs:
		default:
		}
		return regs
	}
	require.NoError(t, sess.AddSoftwareBreakpoint(NewSoftwareBreakpoint(addr, handler)))

	done := startSession(t, sess)

	regs := waitHit(t, hits)
	assert.NotZero(t, regs["Rsp"], "a live thread has a stack pointer")

	require.NoError(t, sess.Stop())
	waitDone(t, done)

	// The patch byte is gone and the saved original is back in place.
	bps := sess.SoftwareBreakpoints()
	require.Len(t, bps, 1)
	orig, captured := bps[0].OriginalByte()
	require.True(t, captured)

	p, err := memory.Open(pid)
	require.NoError(t, err)
	defer p.Close()
	b, err := p.ReadByte(addr)
	require.NoError(t, err)
	assert.Equal(t, orig, b)
	assert.NotEqual(t, byte(memory.Int3), b)
}

func TestSoftwareBreakpointKeepsFiring(t *testing.T) {
	pid, addr := startSpin(t)
	resetCurrent()

	sess, err := CreateDebugger(pid)
	require.NoError(t, err)

	hits := make(chan Registers, 64)
	require.NoError(t, sess.AddSoftwareBreakpoint(NewSoftwareBreakpoint(addr, func(regs Registers) Registers {
		select {
		case hits <- regs:
		default:
		}
		return regs
	})))

	done := startSession(t, sess)

	// The breakpoint is re-armed after each hit, so the looping target
	// keeps tripping it.
	waitHit(t, hits)
	waitHit(t, hits)
	waitHit(t, hits)

	require.NoError(t, sess.Stop())
	waitDone(t, done)
}

func TestHardwareBreakpointHit(t *testing.T) {
	pid, addr := startSpin(t)
	resetCurrent()

	sess, err := CreateDebugger(pid)
	require.NoError(t, err)

	hits := make(chan Registers, 16)
	require.NoError(t, sess.SetHardwareBreakpoint(0, NewHardwareBreakpoint(addr, func(regs Registers) Registers {
		select {
		case hits <- regs:
		default:
		}
		return regs
	})))

	done := startSession(t, sess)

	regs := waitHit(t, hits)
	assert.NotZero(t, regs["Rsp"])

	require.NoError(t, sess.Stop())
	waitDone(t, done)

	// Stop cleared all four slots.
	for i := 0; i < 4; i++ {
		bp, err := sess.HardwareSlot(i)
		require.NoError(t, err)
		assert.Zero(t, bp.Address)
	}
}

func TestStopWhileIdle(t *testing.T) {
	pid, _ := startSpin(t)
	resetCurrent()

	sess, err := CreateDebugger(pid)
	require.NoError(t, err)

	done := startSession(t, sess)
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, sess.Stop())
	waitDone(t, done)
	assert.False(t, sess.Running())
}

func TestRestartAfterStop(t *testing.T) {
	pid, addr := startSpin(t)
	resetCurrent()

	sess, err := CreateDebugger(pid)
	require.NoError(t, err)

	hits := make(chan Registers, 16)
	require.NoError(t, sess.AddSoftwareBreakpoint(NewSoftwareBreakpoint(addr, func(regs Registers) Registers {
		select {
		case hits <- regs:
		default:
		}
		return regs
	})))

	done := startSession(t, sess)
	waitHit(t, hits)
	require.NoError(t, sess.Stop())
	waitDone(t, done)

	// Same session, second run.
	done = startSession(t, sess)
	waitHit(t, hits)
	require.NoError(t, sess.Stop())
	waitDone(t, done)
}

func TestAttachToMissingProcess(t *testing.T) {
	resetCurrent()

	// A pid that cannot exist.
	sess, err := CreateDebugger(0xFFFFFFF)
	require.NoError(t, err)

	err = sess.Start()
	var attachErr *AttachError
	require.ErrorAs(t, err, &attachErr)
	assert.False(t, sess.Running())
}
