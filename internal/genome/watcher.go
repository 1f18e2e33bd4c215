package genome

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"anima/internal/docs"
)

// Watcher re-verifies the genome whenever an identity-critical document
// changes on disk. Deviations are logged only; the boot path surfaces
// them as a warning section, and remediation stays an explicit operator
// action.
type Watcher struct {
	verifier *Verifier
	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
}

// Watch starts watching the document root. Returns nil (not an error)
// when the platform watcher cannot be created; tamper detection still
// happens on every boot.
func Watch(v *Verifier) *Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("genome: watcher unavailable: %v", err)
		return nil
	}
	if err := fsw.Add(v.Docs.Root); err != nil {
		log.Printf("genome: watch %s: %v", v.Docs.Root, err)
		fsw.Close()
		return nil
	}

	w := &Watcher{verifier: v, fsw: fsw, stopCh: make(chan struct{})}
	go w.loop()
	return w
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevantOp(ev) || !isGenomeFile(ev.Name) {
				continue
			}
			devs, err := w.verifier.Verify()
			if err != nil {
				log.Printf("genome: verify after %s: %v", filepath.Base(ev.Name), err)
				continue
			}
			for _, d := range devs {
				log.Printf("genome: %s %s (external change detected)", d.Name, d.Kind)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("genome: watch error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	close(w.stopCh)
	w.fsw.Close()
}

// relevantOp reports whether an fsnotify event can change document
// content. Create is included because editors and atomic writers
// replace files by renaming a temp file over the target, which shows
// up as a Create on the watched path.
func relevantOp(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func isGenomeFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range docs.GenomeDocuments {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}
