package relaylog

import (
	"runtime"
	"strings"
)

// callerInfo holds the source location of a log call site.
type callerInfo struct {
	file string
	line int
	fn   string
}

// captureCaller captures the caller's file, line and function name at
// the given skip depth, stripping the filename down to its basename.
func captureCaller(skip int) callerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return callerInfo{}
	}

	base := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		base = file[idx+1:]
	}

	fn := runtime.FuncForPC(pc)
	funcName := ""
	if fn != nil {
		funcName = fn.Name()
	}

	return callerInfo{file: base, line: line, fn: funcName}
}
