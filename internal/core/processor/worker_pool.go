package processor

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// WorkerPool verkleinert hochgeladene Bilder parallel. Die Inferenz läuft
// nicht über den Pool, sie bleibt sequenziell.
type WorkerPool struct {
	compressor      Compressor
	jobs            chan *compressJob
	workerCount     int
	activeJobs      int
	activeJobsMutex sync.Mutex
	shutdown        chan struct{}
	shutdownOnce    sync.Once
}

type compressJob struct {
	data        []byte
	contentType string
	resultCh    chan compressResult
}

type compressResult struct {
	data        []byte
	contentType string
}

// NewWorkerPool erstellt einen neuen Worker-Pool; ohne Compressor werden die Daten durchgereicht
func NewWorkerPool(compressor Compressor) *WorkerPool {
	// Container-bewusste Konfiguration: Verwende 75% der verfügbaren CPUs, mindestens 2
	workerCount := max(2, (runtime.NumCPU()*3)/4)

	log.Debugf("Initializing image compression worker pool with %d workers", workerCount)

	pool := &WorkerPool{
		compressor:  compressor,
		jobs:        make(chan *compressJob, workerCount*2),
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
	}
	pool.startWorkers()
	return pool
}

func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		go func(workerID int) {
			for {
				select {
				case job := <-p.jobs:
					p.activeJobsMutex.Lock()
					p.activeJobs++
					p.activeJobsMutex.Unlock()

					start := time.Now()
					data, contentType := p.compressor.Compress(job.data, job.contentType)

					p.activeJobsMutex.Lock()
					p.activeJobs--
					p.activeJobsMutex.Unlock()

					// resultCh ist gepuffert, der Sender blockiert nie
					job.resultCh <- compressResult{data: data, contentType: contentType}
					log.Debugf("Worker %d compressed image in %v", workerID, time.Since(start))

				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

// Compress verkleinert ein Bild über den Pool
func (p *WorkerPool) Compress(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
	if p.compressor == nil {
		return data, contentType, nil
	}

	job := &compressJob{data: data, contentType: contentType, resultCh: make(chan compressResult, 1)}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-p.shutdown:
		return data, contentType, nil
	}

	select {
	case res := <-job.resultCh:
		return res.data, res.contentType, nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

// ActiveJobCount gibt die Anzahl der aktuell aktiven Jobs zurück
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// GetWorkerCount gibt die Anzahl der Worker im Pool zurück
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}

// Shutdown fährt den Worker-Pool herunter
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
}
