/*
Package variants produces and caches fixed-size renditions of gallery images.

Every source image can be rendered at three size classes (thumbnail 400px,
medium 800px, large 1200px). A rendition is contain-fit onto an opaque dark
square, JPEG encoded and stored in a [BlobStore], which hands back a
revocable "blob:" [Ref].

# Flow

[Service.GetOptimizedURL] never blocks. A cache hit returns the stored ref;
a miss returns a placeholder data URL and starts a background transcode.
Concurrent requests for the same (source, class) key share one transcode.
[Service.Ensure] is the waiting form used by batches and uploads.

	svc := variants.NewService(transcoder, store, variants.Options{})
	svc.Start()
	defer svc.Stop()

	ref, _ := svc.GetOptimizedURL("/albums/coast/1.jpg", variants.Thumbnail)
	if ref.IsPlaceholder() {
	    // show it now, re-query later or use Bind
	}

# Resource ownership

The [Cache] owns every ref it holds. Overwrite, eviction, expiry, sweep and
clear all revoke the dropped handle. Revocation failures are logged and
counted but never returned.

[Service.Clear] bumps a generation counter. A transcode that started before
the clear settles normally but its result is revoked instead of cached, and
its waiters receive [ErrSuperseded].

# Persistence

[Service.SaveSnapshot] writes cache metadata as JSON under [SnapshotKey].
[Service.LoadSnapshot] restores only entries whose handles still exist, so
memory-backed handles never survive a restart and disk-backed ones do.
*/
package variants
