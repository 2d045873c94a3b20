package core

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/cpu"
)

var (
	defaultOps     SpatialOps
	defaultOpsOnce sync.Once
)

// DefaultOps returns the vector ops implementation best suited to the current CPU.
// The choice can be forced with the RANN_VECTOR_OPS environment variable
// ("blas" or "fallback"). The selection happens once per process.
func DefaultOps() SpatialOps {
	defaultOpsOnce.Do(func() {
		defaultOps = selectOps(os.Getenv("RANN_VECTOR_OPS"))
		log.Debug().Msgf("Using %s vector ops", defaultOps.Name())
	})
	return defaultOps
}

// selectOps picks an implementation for the given override, falling back to
// CPU feature detection when the override is empty or unknown.
func selectOps(override string) SpatialOps {
	switch strings.TrimSpace(strings.ToLower(override)) {
	case "blas":
		return BlasOps{}
	case "fallback":
		return FallbackOps{}
	case "":
	default:
		log.Warn().Msgf("Unknown RANN_VECTOR_OPS value: %s", override)
	}

	if hasSIMD() {
		return BlasOps{}
	}
	return FallbackOps{}
}

// hasSIMD reports whether gonum's assembly kernels will have vector units to use.
func hasSIMD() bool {
	return cpu.X86.HasAVX2 || cpu.X86.HasAVX || cpu.ARM64.HasASIMD
}
