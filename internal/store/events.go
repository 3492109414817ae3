package store

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/parambench/parambench/internal/errs"
)

// AppendEvent records a state-transition line to the benchmark's
// append-only event log, backing the `log` command and making restart
// auditable beyond just functional.
func (b *Benchmark) AppendEvent(format string, args ...any) error {
	f, err := os.OpenFile(eventLogPath(b.Dir()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.New(errs.Filesystem, err)
	}
	defer f.Close()
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	_, err = f.WriteString(line)
	return err
}

// ReadEvents returns every line of the benchmark's event log.
func (b *Benchmark) ReadEvents() ([]string, error) {
	f, err := os.Open(eventLogPath(b.Dir()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.New(errs.Filesystem, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// SetComment attaches a free-text annotation to the benchmark, persisted
// in the graph file alongside its other metadata.
func (b *Benchmark) SetComment(text string) error {
	b.Comment = text
	return b.Save()
}
