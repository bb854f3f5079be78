package guda

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks available CPU instruction set extensions
type CPUFeatures struct {
	HasSSE4     bool
	HasAVX      bool
	HasAVX2     bool
	HasFMA      bool
	HasAVX512F  bool // Foundation
	HasAVX512BW bool // Byte/Word
	HasNEON     bool
	HasFP16     bool // ARM64 half-precision arithmetic
}

// Global CPU feature detection
var cpuFeatures = CPUFeatures{
	HasSSE4:     cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
	HasAVX:      cpu.X86.HasAVX,
	HasAVX2:     cpu.X86.HasAVX2,
	HasFMA:      cpu.X86.HasFMA,
	HasAVX512F:  cpu.X86.HasAVX512F,
	HasAVX512BW: cpu.X86.HasAVX512BW,
	HasNEON:     cpu.ARM64.HasASIMD,
	HasFP16:     cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP,
}

// detectCPUFeatures lists the detected extensions, weakest first.
func detectCPUFeatures() []string {
	var features []string
	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"SSE4", cpuFeatures.HasSSE4},
		{"AVX", cpuFeatures.HasAVX},
		{"FMA", cpuFeatures.HasFMA},
		{"AVX2", cpuFeatures.HasAVX2},
		{"AVX512BW", cpuFeatures.HasAVX512BW},
		{"AVX512F", cpuFeatures.HasAVX512F},
		{"NEON", cpuFeatures.HasNEON},
		{"FP16", cpuFeatures.HasFP16},
	} {
		if f.ok {
			features = append(features, f.name)
		}
	}
	return features
}

// GetCPUInfo returns a string describing available CPU features
func GetCPUInfo() string {
	features := detectCPUFeatures()
	if len(features) == 0 {
		return "No SIMD extensions detected"
	}
	return "CPU features: " + strings.Join(features, ", ")
}
