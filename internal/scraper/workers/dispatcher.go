package workers

import (
	"sync"

	"careersync/internal/logging"
	"careersync/internal/logging/types"
)

// Dispatcher distributes queued fetch tasks across workers.
type Dispatcher struct {
	taskQueue chan FetchTask
	workers   []*Worker
	quit      chan bool
	logger    types.Logger
	mu        sync.RWMutex
	running   bool
}

// NewDispatcher creates a new task dispatcher.
func NewDispatcher(taskQueue chan FetchTask, workers []*Worker) *Dispatcher {
	return &Dispatcher{
		taskQueue: taskQueue,
		workers:   workers,
		quit:      make(chan bool),
		logger:    logging.GetGlobalLogger().WithField("component", "dispatcher"),
	}
}

// Start starts the dispatch loop.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	go d.dispatch()

	d.running = true
	d.logger.Debug("Task dispatcher started", map[string]interface{}{
		"workers": len(d.workers),
	})
}

// Stop stops the dispatcher.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	d.quit <- true

	d.running = false
	d.logger.Debug("Task dispatcher stopped", nil)
}

// dispatch assigns each task to the next free worker, round-robin.
func (d *Dispatcher) dispatch() {
	workerIndex := 0

	for {
		select {
		case task := <-d.taskQueue:
		assignLoop:
			for {
				worker := d.workers[workerIndex]
				workerIndex = (workerIndex + 1) % len(d.workers)
				select {
				case worker.TaskChan <- task:
					break assignLoop
				default:
					// Worker is busy, try the next one.
					continue
				}
			}

		case <-d.quit:
			return
		}
	}
}

// IsRunning returns true if the dispatcher is running.
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}
