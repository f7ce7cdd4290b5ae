// Package albums defines the gallery album model and the pure registry
// helpers shared by the database layer and the HTTP handlers.
//
// The initial catalogue ships embedded as TOML (seed.toml) and can be
// replaced at startup with ALBUM_SEED:
//
//	seed, err := albums.LoadSeed(cfg.AlbumSeed)
//
// [PreloadSources] picks the images worth warming in the variant cache when
// an album is opened: its cover followed by the first three images.
package albums
