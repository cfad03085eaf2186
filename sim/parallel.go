package sim

import "sync"

// sweepChunk is a particle range handed to one worker.
type sweepChunk struct {
	start, end int
}

// workerPool runs the force sweep on persistent goroutines. Each chunk
// writes a disjoint slice of the acceleration buffer, so results match the
// serial sweep exactly.
type workerPool struct {
	numWorkers int

	workChan chan sweepChunk // sends work to workers
	doneChan chan struct{}   // workers signal completion
	stopChan chan struct{}   // signals workers to exit
	wg       sync.WaitGroup
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	return &workerPool{numWorkers: numWorkers}
}

// start launches the workers. compute is called with each chunk.
func (p *workerPool) start(compute func(start, end int)) {
	if p.running {
		return
	}

	p.workChan = make(chan sweepChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(compute)
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

func (p *workerPool) worker(compute func(start, end int)) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			compute(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0, n) into one chunk per worker and blocks until every chunk
// is done.
func (p *workerPool) run(n int) {
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- sweepChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
