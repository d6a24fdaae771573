package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/event"
)

// WatchCmd reloads the store whenever another process rewrites it and
// prints each change until interrupted.
type WatchCmd struct {
	For    time.Duration `help:"Stop after this long (0 runs until interrupted)."`
	Events int           `help:"Stop after this many changes (0 for no limit)."`
}

func (cmd *WatchCmd) Run(ctx *Context) error {
	m, err := ctx.Load()
	if err != nil {
		return err
	}
	path, ok := filePath(m)
	if !ok {
		return errors.New("watch only supports file-backed stores")
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	vm, err := ctx.ViewModel()
	if err != nil {
		return err
	}
	vm.Initialize()
	defer vm.Stop()

	changes := make(chan event.Event, 16)
	id := vm.Subscribe(constants.EventsModel, func(e event.Event) {
		if e.Type != constants.EventModelChanged {
			return
		}
		select {
		case changes <- e:
		default:
		}
	})
	defer vm.Dispatcher().Unsubscribe(id)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	// Saves replace the file by rename, so the directory is watched
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cmd.For > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, cmd.For)
		defer cancel()
	}

	ctx.printf("Watching %s (%d entries). Press Ctrl+C to stop.\n", path, len(vm.Entries()))

	seen := 0
	for {
		select {
		case <-runCtx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			ctx.logger().Debug("store file changed", "op", ev.Op.String())
			if err := vm.Reload(); err != nil {
				// A writer that is not atomic can be caught mid-write
				ctx.logger().Warn("reload failed", "err", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ctx.logger().Error("file watcher error", "err", err)

		case <-changes:
			entries := vm.Entries()
			line := fmt.Sprintf("%s  store changed: %d entries", ctx.Timestamps().NowText(), len(entries))
			if n := len(entries); n > 0 {
				line += fmt.Sprintf(" (latest: %s)", entries[n-1].Activity())
			}
			ctx.println(line)

			seen++
			if cmd.Events > 0 && seen >= cmd.Events {
				return nil
			}
		}
	}
}
