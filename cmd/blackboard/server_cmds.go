package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sphildreth/blackboard/internal/ansi"
	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/network/telnet"
	"github.com/sphildreth/blackboard/internal/nodes"
	"github.com/sphildreth/blackboard/internal/session"
)

var serverCmd = &cobra.Command{
	Use:              "server",
	Short:            "Start the server",
	PersistentPreRun: bootAppForServer,
	Run:              startServer,
}

func bootAppForServer(cmd *cobra.Command, args []string) {
	if err := app.Boot(cfgFile, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func startServer(cmd *cobra.Command, args []string) {
	// Console gets the full banner; it is always a capable terminal.
	ansi.RenderArt(os.Stdout, "boot", ansi.Profile{ANSI: true, Modern: true})

	restartChan := make(chan struct{}, 1)
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	for {
		var watcher *fsnotify.Watcher
		if app.Config.HotReload {
			watcher = watchConfigFiles(restartChan)
		}

		telnetEnabled := app.Config.Listeners.Telnet.Enabled
		if !telnetEnabled {
			app.Logger.Warn("No listeners enabled.")
			select {
			case <-stopChan:
				if watcher != nil {
					watcher.Close()
				}
				return
			case <-restartChan:
				if watcher != nil {
					watcher.Close()
				}
				app.Boot(cfgFile, false)
				continue
			}
		}

		telnetConfig := app.Config.Listeners.Telnet
		telnetServer, err := telnet.NewServer(telnetConfig, app.Nodes, app.Logger,
			func(conn *telnet.Connection, node *nodes.Node) {
				session.Run(conn, node, telnetConfig.InitialView)
			})
		if err != nil {
			app.Logger.Error("Failed to create telnet server", "err", err)
			os.Exit(1)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telnetServer.ListenAndServe(); err != nil {
				app.Logger.Error("Telnet server stopped", "err", err)
			}
		}()

		select {
		case <-stopChan:
			app.Logger.Info("Shutting down...")
			telnetServer.Stop()
			if watcher != nil {
				watcher.Close()
			}
			return

		case <-restartChan:
			telnetServer.Stop()
			if watcher != nil {
				watcher.Close()
			}
			wg.Wait()

			if err := app.Boot(cfgFile, false); err != nil {
				// Boot did not swap anything on failure, so the listener
				// restarts with the existing config and store.
				app.Logger.Error("Failed to reload config", "err", err)
			}
		}
	}
}

// watchConfigFiles watches every loaded config file and signals restartChan
// when one changes. Returns nil if the watcher cannot be created.
func watchConfigFiles(restartChan chan struct{}) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		app.Logger.Error("Failed to create watcher", "err", err)
		return nil
	}

	for _, file := range app.Config.LoadedFiles {
		err := watcher.Add(file)
		relPath := relativePath(file)
		if err != nil {
			app.Logger.Error("Failed to watch config file", "file", relPath, "err", err)
		} else {
			app.Logger.Debug("Watching config file", "file", relPath)
		}
	}

	go func(w *fsnotify.Watcher) {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				// Hot reload may have been disabled by the last reload.
				if !app.Config.HotReload {
					continue
				}
				app.Logger.Info("Config file modified, rebooting app...", "file", relativePath(event.Name))
				select {
				case restartChan <- struct{}{}:
				default:
					// restart pending
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				app.Logger.Error("Watcher error", "err", err)
			}
		}
	}(watcher)

	return watcher
}

func relativePath(file string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, file); err == nil {
			return rel
		}
	}
	return file
}
