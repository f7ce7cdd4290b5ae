/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Source images and on-disk variant handles may live on network mounts. This package
wraps os.Stat, os.Open and os.Remove with retry logic for ESTALE (stale file handle)
errors, which NFS returns transiently when files are accessed during server-side changes.

# Key Features

  - Automatic retry with exponential backoff for ESTALE errors only
  - Configurable retry attempts (default: 3) and backoff timings
  - Any other error is returned immediately without sleeping
  - Per-volume Prometheus counters (assets, cache, database)

# Usage

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "assets": cfg.AssetsDir,
	    "cache":  cfg.CacheDir,
	}))

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()
*/
package filesystem
