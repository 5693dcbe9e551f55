// Command nce is the launcher binary itself: on every invocation it
// locates its own concatenated payload and manifest, selects and
// reifies a boot command, extracts the files that command needs, and
// execs (or, on platforms without exec, spawns) it (spec.md §4.6-§4.8).
package main

import (
	"os"

	"github.com/nce-project/nce/boot"
	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/internal/fail"
	"github.com/nce-project/nce/launcherr"
)

func run() (code int, err error) {
	defer fail.Around(&err)

	currentExe, lookupErr := os.Executable()
	fail.Fast(lookupErr)

	code, runErr := boot.Run(currentExe, os.Args)
	fail.Fast(runErr)
	return code, nil
}

func main() {
	code, err := run()
	if err != nil {
		if failure, ok := err.(*launcherr.Error); ok {
			common.Log("%s", failure.Error())
		} else {
			common.Log("%v", err)
		}
		common.WaitLogs()
		os.Exit(1)
	}
	common.WaitLogs()
	os.Exit(code)
}
