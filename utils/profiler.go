package utils

import (
	"os"

	"github.com/Luismorlan/honeybee/utils/flag"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// profileTypes returns CPU and heap profiles, plus goroutine and mutex
// profiles when DD_PROFILE_CONTENTION is set.
func profileTypes() []profiler.ProfileType {
	types := []profiler.ProfileType{profiler.CPUProfile, profiler.HeapProfile}
	if os.Getenv("DD_PROFILE_CONTENTION") != "" {
		types = append(types, profiler.GoroutineProfile, profiler.MutexProfile)
	}
	return types
}

// StartProfiler starts the Datadog continuous profiler. Only production
// binaries call it.
func StartProfiler() error {
	return profiler.Start(
		profiler.WithService(flag.ServiceName),
		profiler.WithEnv(ddEnv()),
		profiler.WithProfileTypes(profileTypes()...),
	)
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
