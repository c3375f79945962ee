package systems

import (
	"runtime"
	"sync"
)

// defaultParallelThreshold is the minimum number of live particles in a
// level before its nodes are ticked on the worker pool. Below this,
// single-threaded is faster due to goroutine overhead.
const defaultParallelThreshold = 512

// levelTask is the snapshot of one node taken before its level runs.
type levelTask struct {
	node          *Node
	parent        *Node
	parentMissing bool
}

// workChunk is a range of tasks for a worker to process.
type workChunk struct {
	start, end int
	dt         float32
}

// workerPool ticks the nodes of one level. Nodes in a level never share
// a buffer, so each worker mutates only the nodes of its chunk.
type workerPool struct {
	tasks      []levelTask
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{
		numWorkers: numWorkers,
		tasks:      make([]levelTask, 0, 16),
	}
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.runChunk(chunk)
			p.doneChan <- struct{}{}
		}
	}
}

func (p *workerPool) runChunk(c workChunk) {
	for i := c.start; i < c.end; i++ {
		t := &p.tasks[i]
		t.node.tick(t.parent, t.parentMissing, c.dt)
	}
}

// run ticks every queued task and returns when all are done.
func (p *workerPool) run(dt float32, parallel bool) {
	n := len(p.tasks)
	if n == 0 {
		return
	}
	if !parallel || n < 2 || p.numWorkers < 2 {
		p.runChunk(workChunk{start: 0, end: n, dt: dt})
		return
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, dt: dt}
		dispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
