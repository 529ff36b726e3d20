package watcher

// Integrity watcher: revalidates the save file's checksums every time the
// game (or anything else) rewrites it, and reports what it found.

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"ersave/checksum"
	"ersave/savefile"
)

// Report is one watch result: either a load failure or a validation run.
type Report struct {
	Path   string
	Err    error
	Checks checksum.Validation
}

type Watcher interface {
	Start_watching(reports chan<- *Report) error
	Stop_watching()
}

func New_watcher(path string, settle time.Duration) Watcher {
	return &file_watcher{path: path, settle: settle}
}

type file_watcher struct {
	path    string
	settle  time.Duration
	watcher *fsnotify.Watcher
}

func (fw *file_watcher) Start_watching(reports chan<- *Report) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	fw.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if filepath.Base(event.Name) == filepath.Base(fw.path) {
						fw.handle_file(event.Name, reports)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				reports <- &Report{Path: fw.path, Err: err}
			}
		}
	}()

	// Watch the directory, not the file: the game rewrites saves by
	// replace-rename, which would detach a watch on the file itself.
	err = fw.watcher.Add(filepath.Dir(fw.path))
	if err != nil {
		fw.watcher.Close()
	}
	return err
}

func (fw *file_watcher) Stop_watching() {
	fw.watcher.Close()
}

func (fw *file_watcher) handle_file(filename string, reports chan<- *Report) {
	// Wait for the writer to finish with the file
	time.Sleep(fw.settle)

	sf, err := savefile.Load_file(filename)
	if err != nil {
		reports <- &Report{Path: filename, Err: err}
		return
	}
	reports <- &Report{Path: filename, Checks: sf.Validate()}
}
