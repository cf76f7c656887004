package notify

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Consumer drains the alert spool and hands each event to a handler.
// Consumed files are deleted, so a restart never replays old transitions.
type Consumer struct {
	dir     string
	handle  func(AlertEvent)
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewConsumer creates a consumer for the spool under the given data path.
func NewConsumer(dataPath string, handle func(AlertEvent)) *Consumer {
	return &Consumer{
		dir:    filepath.Join(dataPath, "alerts.spool"),
		handle: handle,
		done:   make(chan struct{}),
	}
}

// Start drains events already on disk, then follows the directory for new
// ones. Call Stop to shut down.
func (c *Consumer) Start() error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}

	c.drainBacklog()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(c.dir); err != nil {
		_ = w.Close()
		return err
	}
	c.watcher = w

	go c.follow()
	log.Printf("notify: consuming alert spool at %s", c.dir)
	return nil
}

// Stop shuts the consumer down and waits for the follow loop to exit.
func (c *Consumer) Stop() {
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
	<-c.done
}

// drainBacklog consumes spool files left over from before this process
// started, oldest first. File names sort chronologically by construction.
func (c *Consumer) drainBacklog() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".alert") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c.consume(filepath.Join(c.dir, name))
	}
}

func (c *Consumer) follow() {
	defer close(c.done)
	for {
		select {
		case evt, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			// Renames into the directory surface as create events.
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && strings.HasSuffix(evt.Name, ".alert") {
				c.consume(evt.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: spool watch error: %v", err)
		}
	}
}

func (c *Consumer) consume(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // another consumer got there first
	}
	_ = os.Remove(path)

	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("notify: discarding malformed spool file %s: %v", filepath.Base(path), err)
		return
	}
	if event.AlertID == "" || c.handle == nil {
		return
	}
	c.handle(event)
}
