package engine

import "time"

// Run states reported by Stats.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Stats is a point-in-time view of a crawl.
type Stats struct {
	RunID        string `json:"run_id"`
	State        string `json:"state"`
	Level        int    `json:"level"`
	Levels       int    `json:"levels_completed"`
	Visited      int    `json:"visited"`
	Failed       int    `json:"failed"`
	Emitted      int    `json:"emitted"`
	SinkFailures int    `json:"sink_failures"`
	Discovered   int    `json:"discovered"`
	// Queued counts every URL ever accepted by the frontier, seeds included.
	Queued           int       `json:"queued"`
	Pending          int       `json:"pending"`
	CorpusDocuments  int       `json:"corpus_documents"`
	CorpusVocabulary int       `json:"corpus_vocabulary"`
	StopReason       string    `json:"stop_reason,omitempty"`
	StartedAt        time.Time `json:"started_at,omitzero"`
	FinishedAt       time.Time `json:"finished_at,omitzero"`
}

// Stats returns a snapshot safe to read while the crawl runs.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func (e *Engine) updateStats(fn func(*Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.stats)
}
