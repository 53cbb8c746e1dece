package agent

import (
	"crypto/md5"
	"encoding/binary"
	"time"
)

// splay computes the deterministic per-check offset standalone checks
// wait before their first run: the low 64 bits (little-endian) of
// MD5("<client>:<check>"), minus the current time in milliseconds,
// modulo the check interval in milliseconds. The hash is not
// security-sensitive — only its uniform distribution over [0, interval)
// matters, and changing it would change the observable splay schedule
// across restarts.
func splay(clientName, checkName string, intervalMs int64, nowMs int64) time.Duration {
	if intervalMs <= 0 {
		return 0
	}
	sum := md5.Sum([]byte(clientName + ":" + checkName))
	h := binary.LittleEndian.Uint64(sum[:8])
	iv := uint64(intervalMs)
	offset := (h%iv + iv - uint64(nowMs)%iv) % iv
	return time.Duration(offset) * time.Millisecond
}

// standaloneCandidates selects the local checks the standalone scheduler
// owns: command and extension checks alike need standalone=true and a
// positive interval — without one there's no cadence to schedule against,
// command and extension checks are rejected identically.
func standaloneCandidates(settings Settings, registry ExtensionRegistry) []CheckDefinition {
	var out []CheckDefinition
	for _, name := range namesWithLocalChecks(settings) {
		cd, ok := settings.LocalCheck(name)
		if !ok || !cd.Standalone || cd.Interval <= 0 {
			continue
		}
		out = append(out, cd)
	}
	return out
}

// namesWithLocalChecks enumerates the checks.* keys settings carries.
// Settings has no direct "list all checks" method (the interface is
// deliberately narrow); concrete stores additionally implement
// CheckNames so the scheduler can enumerate without widening the public
// interface every caller depends on.
func namesWithLocalChecks(settings Settings) []string {
	if lister, ok := settings.(interface{ CheckNames() []string }); ok {
		return lister.CheckNames()
	}
	return nil
}
