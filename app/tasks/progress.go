package tasks

import (
	"sync/atomic"
	"time"
)

// Progress tracks a running pipeline for the status endpoint. It is safe for
// concurrent use; tasks write to it while HTTP handlers read snapshots.
type Progress struct {
	startedAt     time.Time
	phase         atomic.Value
	postsDeleted  atomic.Int64
	postsImported atomic.Int64
	assetsWritten atomic.Int64
}

type ProgressSnapshot struct {
	Phase         string    `json:"phase"`
	StartedAt     time.Time `json:"started_at"`
	PostsDeleted  int64     `json:"posts_deleted"`
	PostsImported int64     `json:"posts_imported"`
	AssetsWritten int64     `json:"assets_written"`
}

func NewProgress() *Progress {
	p := &Progress{startedAt: time.Now()}
	p.phase.Store("pending")
	return p
}

func (p *Progress) SetPhase(phase string) {
	p.phase.Store(phase)
}

func (p *Progress) AddDeleted(n int) {
	p.postsDeleted.Add(int64(n))
}

func (p *Progress) PostImported() {
	p.postsImported.Add(1)
}

func (p *Progress) AssetWritten() {
	p.assetsWritten.Add(1)
}

func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Phase:         p.phase.Load().(string),
		StartedAt:     p.startedAt,
		PostsDeleted:  p.postsDeleted.Load(),
		PostsImported: p.postsImported.Load(),
		AssetsWritten: p.assetsWritten.Load(),
	}
}
