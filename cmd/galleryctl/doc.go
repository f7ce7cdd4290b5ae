// Command galleryctl provides offline administration of the photo gallery
// database.
//
// Usage:
//
//	galleryctl <command> [args]
//
// Commands:
//
//	status          Print album, image and view totals and whether a variant
//	                cache snapshot is stored.
//
//	seed [file]     Seed albums from a TOML file, or the built-in albums when
//	                no file is given. Seeding only happens on an empty registry.
//
//	clean-views [n] Delete views older than n days (365 by default). Their
//	                counts move into the album totals, so totals stay put.
//
//	clear-snapshot  Discard the variant cache snapshot so the next start
//	                begins with an empty cache. Asks for confirmation when
//	                run from a terminal.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//
// Run it while the server is stopped: the server rewrites the snapshot on
// shutdown.
package main
