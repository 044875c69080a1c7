// Package tail live-tails a run's events.jsonl, re-opening the file across
// truncate/rotate so `race watch` keeps working if the Artifact Store
// recreates the file underneath it.
package tail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hydra-cli/hydra/internal/core"
)

// Follow streams newly-appended EventRecords from path to out until ctx is
// canceled. It starts at the file's current end, so earlier events are not
// replayed. If path does not exist yet (a race that hasn't written its first
// event), Follow watches the parent directory and starts tailing as soon as
// the file is created, rather than failing immediately.
func Follow(ctx context.Context, path string, out chan<- core.EventRecord) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := waitForFile(ctx, watcher, path); err != nil {
		return err
	}

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	f, offset, err := openAtEnd(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				_ = f.Close()
				_ = watcher.Remove(path)
				f, offset, err = openAtStart(path)
				if err != nil {
					return err
				}
				if err := watcher.Add(path); err != nil {
					return fmt.Errorf("re-watching %s: %w", path, err)
				}
				continue
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}
			offset, err = drainNewLines(f, offset, out)
			if err != nil {
				return err
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, werr)
		}
	}
}

// waitForFile blocks until path exists, watching its parent directory for a
// create event. It is a no-op if path already exists.
func waitForFile(ctx context.Context, watcher *fsnotify.Watcher, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	defer watcher.Remove(dir)

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed while waiting for %s", path)
			}
			if ev.Name == path && (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				return nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed while waiting for %s", path)
			}
			return fmt.Errorf("watching %s: %w", dir, werr)
		}
	}
}

func openAtEnd(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func openAtStart(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reopening %s: %w", path, err)
	}
	return f, 0, nil
}

func drainNewLines(f *os.File, offset int64, out chan<- core.EventRecord) (int64, error) {
	if _, err := f.Seek(offset, 0); err != nil {
		return offset, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var read int64
	for scanner.Scan() {
		line := scanner.Bytes()
		read += int64(len(line)) + 1
		var rec core.EventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		out <- rec
	}
	if err := scanner.Err(); err != nil {
		return offset, err
	}
	return offset + read, nil
}
