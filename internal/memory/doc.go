// Package memory keeps the process inside its container memory budget.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from the Kubernetes Downward API
// (MEMORY_LIMIT, MEMORY_RATIO) and should run before significant allocations.
// Image decoding holds full-resolution bitmaps, and libvips allocates outside
// the Go heap, so the default ratio leaves 15% headroom.
//
// [Monitor] samples heap usage. Once usage crosses the critical water mark,
// [Monitor.Wait] blocks batch workers between groups until usage drops below
// the high water mark:
//
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//
//	if err := mon.Wait(ctx); err != nil {
//	    return err // ctx cancelled or monitor stopped
//	}
//
// Example Downward API wiring:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.8"
package memory
