package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine. A panic is logged and swallowed so a
// single failing task cannot take the process down.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer Recover(logger, name, nil)
		fn()
	}()
}

// Recover is deferred by goroutines that must survive a panic. When onPanic
// is set it receives the recovered value as an error.
func Recover(logger arbor.ILogger, name string, onPanic func(error)) {
	r := recover()
	if r == nil {
		return
	}

	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	if logger != nil {
		logger.Error().
			Str("goroutine", name).
			Str("panic", fmt.Sprintf("%v", r)).
			Str("stack", string(buf[:n])).
			Msg("Recovered from panic in goroutine")
	} else {
		fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, buf[:n])
	}

	if onPanic != nil {
		onPanic(fmt.Errorf("panic in %s: %v", name, r))
	}
}
