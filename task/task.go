// Package task provides the background task pipeline: submitted instructions
// queue up and a single worker executes them one at a time, so the prompt
// stays responsive while long tasks run, and no two tasks ever race on the
// file system.
package task

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/m4xw311/termagent/errors"
)

const queueSize = 64

// Func executes one task. Reporting the outcome (printing, result files,
// memory) is the Func's own responsibility.
type Func func(ctx context.Context, task string)

// Runner owns the queue and the worker goroutine.
type Runner struct {
	queue chan string
	run   Func
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewRunner starts the worker. Call Close to drain the queue and stop it.
func NewRunner(ctx context.Context, run Func) *Runner {
	r := &Runner{
		queue: make(chan string, queueSize),
		run:   run,
	}
	r.wg.Add(1)
	go r.worker(ctx)
	return r
}

// Submit enqueues a task. It blocks when the queue is full.
func (r *Runner) Submit(task string) {
	r.queue <- task
}

// Close stops accepting tasks, waits for queued ones to finish and returns.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for task := range r.queue {
		r.run(ctx, task)
	}
}

// WriteResult saves a task transcript as a timestamped file in dir and
// returns the file path.
func WriteResult(dir, task, result string) (string, error) {
	name := fmt.Sprintf("task_result_%s.txt", time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(dir, name)
	content := fmt.Sprintf("Task: %s\nResult:\n%s\n", task, result)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write result file '%s'", path)
	}
	return path, nil
}

// LoadTasks reads one task per line from path, skipping blank lines and
// lines starting with '#'.
func LoadTasks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open tasks file '%s'", path)
	}
	defer f.Close()

	var tasks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read tasks file '%s'", path)
	}
	return tasks, nil
}
