package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var debugger = false
var threads = false
var memory = false

var logOut *os.File

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	return logger
}

// Debugger returns true if the event loop should log.
func Debugger() bool {
	return debugger
}

// DebuggerLogger returns a logger for the debug-event loop.
func DebuggerLogger() *logrus.Entry {
	return makeLogger(debugger, logrus.Fields{"layer": "debugger"})
}

// ThreadsLogger returns a logger for thread enumeration and debug-register
// programming.
func ThreadsLogger() *logrus.Entry {
	return makeLogger(threads, logrus.Fields{"layer": "threads"})
}

// MemoryLogger returns a logger for breakpoint byte patching.
func MemoryLogger() *logrus.Entry {
	return makeLogger(memory, logrus.Fields{"layer": "memory"})
}

// Setup sets the logging components from a comma separated list. Recognized
// components are "debugger", "threads" and "memory". An empty list with
// logFlag set enables "debugger".
func Setup(logFlag bool, logstr, logDest string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logDest != "" {
		f, err := os.Create(logDest)
		if err != nil {
			return err
		}
		logOut = f
		log.SetOutput(f)
	}
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "debugger"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "debugger":
			debugger = true
		case "threads":
			threads = true
		case "memory":
			memory = true
		}
	}
	return nil
}

// Close releases the log destination file, if any.
func Close() {
	if logOut != nil {
		logOut.Close()
		logOut = nil
	}
}
