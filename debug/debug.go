package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Match bool
	Seek  bool
	Patch bool
	Rules bool
}

var d *debug

func init() {
	d = &debug{}
	d.Match = boolEnv("SEQPATCH_DEBUG_MATCH")
	d.Seek = boolEnv("SEQPATCH_DEBUG_SEEK")
	d.Patch = boolEnv("SEQPATCH_DEBUG_PATCH")
	d.Rules = boolEnv("SEQPATCH_DEBUG_RULES")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Match reports whether every head-of-buffer comparison is traced.
func Match() bool {
	return d.Match
}

// Seek reports whether rule arming is traced.
func Seek() bool {
	return d.Seek
}

// Patch reports whether rule firing and exhaustion are traced.
func Patch() bool {
	return d.Patch
}

// Rules reports whether rule registration is traced.
func Rules() bool {
	return d.Rules
}
