package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/database"
	"photo-gallery/internal/variants"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	// Get database directory from env or default
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "gallery.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ok := true
	switch command {
	case "status":
		ok = showStatus(ctx, db, os.Stdout)
	case "seed":
		path := ""
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		ok = seedAlbums(ctx, db, path, os.Stdout)
	case "clean-views":
		days := albums.DefaultViewRetentionDays
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				fmt.Fprintln(os.Stderr, "Error: days must be a positive integer")
				os.Exit(1)
			}
			days = n
		}
		ok = cleanViews(ctx, db, days, os.Stdout)
	case "clear-snapshot":
		confirm := newPrompt(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
		ok = clearSnapshot(ctx, db, confirm, os.Stdout)
	default:
		// Sanitize command input using allowlist to break taint chain
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - input is sanitized via allowlist in sanitizeCommand
		printUsage()
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Photo Gallery Administration")
	fmt.Println("")
	fmt.Println("Usage: galleryctl <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  status           - Show album totals and variant snapshot state")
	fmt.Println("  seed [file]      - Seed albums from a TOML file (built-in albums if omitted)")
	fmt.Printf("  clean-views [n]  - Fold views older than n days into album totals (default: %d)\n", albums.DefaultViewRetentionDays)
	fmt.Println("  clear-snapshot   - Discard the saved variant cache snapshot")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func showStatus(ctx context.Context, db *database.Database, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := db.AlbumStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read albums: %v\n", err)
		return false
	}
	views, err := db.ViewStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read view stats: %v\n", err)
		return false
	}
	snapshot, err := db.ReadSnapshot(ctx, variants.SnapshotKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read snapshot: %v\n", err)
		return false
	}

	fmt.Fprintf(out, "Albums:        %d\n", stats.TotalAlbums)
	fmt.Fprintf(out, "Images:        %d\n", stats.TotalImages)
	fmt.Fprintf(out, "Views:         %d (%d unique)\n", stats.TotalViews, stats.TotalUniqueViews)
	fmt.Fprintf(out, "Categories:    %s\n", strings.Join(stats.Categories, ", "))
	fmt.Fprintf(out, "Recorded:      %d views by %d visitors (%d in 30 days, %d today)\n",
		views.TotalViews, views.UniqueVisitors, views.ViewsLast30Days, views.ViewsToday)
	if snapshot == nil {
		fmt.Fprintln(out, "Snapshot:      none")
	} else {
		fmt.Fprintf(out, "Snapshot:      %d bytes\n", len(snapshot))
	}
	return true
}

func seedAlbums(ctx context.Context, db *database.Database, path string, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	seed, err := albums.LoadSeed(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	n, err := db.Seed(ctx, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to seed albums: %v\n", err)
		return false
	}
	if n == 0 {
		fmt.Fprintln(out, "Albums already present, nothing seeded.")
		return true
	}
	fmt.Fprintf(out, "Seeded %d albums.\n", n)
	return true
}

func cleanViews(ctx context.Context, db *database.Database, days int, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	removed, err := db.CleanOldViews(ctx, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to clean views: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "Removed %d views older than %d days.\n", removed, days)
	return true
}

// newPrompt asks a yes/no question on interactive input. Non-interactive
// input is treated as consent so the command works in scripts.
func newPrompt(in io.Reader, out io.Writer, interactive bool) func(question string) bool {
	if !interactive {
		return func(string) bool { return true }
	}
	reader := bufio.NewReader(in)
	return func(question string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", question)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

func clearSnapshot(ctx context.Context, db *database.Database, confirm func(string) bool, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !confirm("Discard the saved variant cache? Variants will be re-created on demand") {
		fmt.Fprintln(out, "Aborted.")
		return false
	}

	deleted, err := db.DeleteMetadata(ctx, variants.SnapshotKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to clear snapshot: %v\n", err)
		return false
	}
	if !deleted {
		fmt.Fprintln(out, "No snapshot stored.")
		return true
	}
	fmt.Fprintln(out, "Snapshot cleared.")
	return true
}
