/*
Package workers sizes concurrency limits in containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the container
CPU quota. Every helper here derives its answer from GOMAXPROCS.

# Usage

	// Concurrent variant transcodes: one per CPU, at most 8
	sem := semaphore.NewWeighted(int64(workers.ForCPU(8)))

	// Outbound source fetch connections: two per CPU, at most 16
	transport.MaxConnsPerHost = workers.ForIO(16)

# Environment Variable Override

VARIANT_WORKERS pins the count for every helper, still capped by the limit
argument:

	env:
	- name: VARIANT_WORKERS
	  value: "2"
*/
package workers
