package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Inbox subdirectories for handled files.
const (
	processedDir = "processed"
	failedDir    = "failed"
)

var payloadExtensions = map[string]bool{
	".jsonl":  true,
	".ndjson": true,
	".json":   true,
}

// isPayloadFile reports whether a file name looks like a finished payload file.
func isPayloadFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return payloadExtensions[strings.ToLower(filepath.Ext(base))]
}

// inboxFile returns the path of a payload file that arrived in the inbox.
// Files must be moved into the inbox complete, so only creation counts.
func inboxFile(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) || !isPayloadFile(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

// watchInbox ingests payload files already in dir, then every file that
// arrives until the context ends.
func watchInbox(ctx context.Context, cmd *cobra.Command, dir string, source domain.SourceType) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isPayloadFile(entry.Name()) {
			continue
		}
		if err := ingestInboxFile(ctx, cmd, filepath.Join(dir, entry.Name()), source); err != nil {
			return err
		}
	}

	cmd.Printf("Watching %s for %s payloads (Ctrl+C to stop)\n", dir, source.Description())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := inboxFile(event)
			if !ok {
				continue
			}
			if err := ingestInboxFile(ctx, cmd, path, source); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Inbox watcher: %v", err)
		}
	}
}

// ingestInboxFile ingests one file and moves it out of the inbox. Unreadable
// files go to failed/; only a fatal ingestion error is returned.
func ingestInboxFile(ctx context.Context, cmd *cobra.Command, path string, source domain.SourceType) error {
	cmd.Printf("Ingesting %s\n", filepath.Base(path))

	payloads, rejected, err := readPayloadFile(path, source)
	if err == nil && len(payloads) == 0 && len(rejected) > 0 {
		err = fmt.Errorf("%w: no readable payloads (%s)", domain.ErrInvalidInput, rejected[0])
	}
	if err != nil {
		logger.Warn("Rejecting %s: %v", path, err)
		cmd.PrintErrf("Rejected %s: %v\n", filepath.Base(path), err)
		return moveInboxFile(path, failedDir)
	}

	if err := ingestPayloads(ctx, cmd, payloads, rejected); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return moveInboxFile(path, processedDir)
}

func moveInboxFile(path, subdir string) error {
	target := filepath.Join(filepath.Dir(path), subdir)
	if err := os.MkdirAll(target, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if err := os.Rename(path, filepath.Join(target, filepath.Base(path))); err != nil {
		return fmt.Errorf("moving %s: %w", path, err)
	}
	return nil
}
