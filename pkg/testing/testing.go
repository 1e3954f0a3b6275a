package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// tests import this package for its side effects only:
	//
	//   import (
	//     _ "liyu1981.xyz/iot-telemetry-state/pkg/testing"
	//   )
	//
	// it moves the working directory to the project root so relative paths
	// (logs/, fixtures) resolve the same way for every package, and keeps the
	// app log of test runs away from the real one.

	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	if _, found := os.LookupEnv("IOT_LOG_DIR"); !found {
		if err := os.Setenv("IOT_LOG_DIR", path.Join(root, "logs", "test")); err != nil {
			panic(err)
		}
	}
}
