package display

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"launcher/pkg/events"
)

// StreamObserver renders the progress of a single download on t.
func StreamObserver(t Task) events.Observer {
	return events.Funcs{
		OnProgress: func(p events.Progress) {
			t.Progress(p.Percent(), ProgressText(p))
		},
	}
}

// ProgressText formats p as "3.1 MB / 40 MB", or just the bytes so far when
// the total is unknown.
func ProgressText(p events.Progress) string {
	done := humanize.Bytes(uint64(p.Downloaded))
	if !p.Known() {
		return done
	}
	return fmt.Sprintf("%s / %s", done, humanize.Bytes(uint64(p.Total)))
}

// BatchObserver counts finished downloads out of total on t and logs failures.
func BatchObserver(t Task, total int) events.Observer {
	var (
		mu     sync.Mutex
		done   int
		failed int
	)
	return events.Funcs{
		OnDownloaded: func(d events.Downloaded) {
			mu.Lock()
			done++
			if !d.OK() {
				failed++
			}
			percent := 100
			if total > 0 {
				percent = done * 100 / total
			}
			msg := fmt.Sprintf("%d/%d files", done, total)
			if failed > 0 {
				msg += fmt.Sprintf(", %d failed", failed)
			}
			mu.Unlock()

			if !d.OK() {
				t.Log(fmt.Sprintf("failed %s: %v", d.URL, d.Err))
			}
			t.Progress(percent, msg)
		},
	}
}
