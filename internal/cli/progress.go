package cli

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/glorpus-work/srcmirror/pkg/model"
	"github.com/glorpus-work/srcmirror/pkg/orchestrator"
)

// progressSink renders one byte bar per archive being downloaded.
type progressSink struct {
	out     io.Writer
	mu      sync.Mutex
	current string
	bar     *progressbar.ProgressBar
}

func newProgressSink(out io.Writer) *progressSink {
	return &progressSink{out: out}
}

// Update is an orchestrator.Hooks.OnProgress callback.
func (p *progressSink) Update(item model.WorkItem, written int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.current != item.LocalPath {
		p.finishLocked()
		p.current = item.LocalPath
		size := item.Record.Size
		if size <= 0 {
			size = -1 // unknown, spinner
		}
		p.bar = progressbar.NewOptions64(size,
			progressbar.OptionSetDescription(item.Record.Filename),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(ProgressWidth),
			progressbar.OptionThrottle(ProgressThrottle),
		)
	}
	_ = p.bar.Set(int(written))
}

// Finish completes the bar of the last archive, if any.
func (p *progressSink) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressSink) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	_, _ = io.WriteString(p.out, "\n")
	p.bar = nil
	p.current = ""
}

// countBar renders a single bar over a known number of archives. It moves
// one step each time the next archive starts extracting.
type countBar struct {
	out     io.Writer
	mu      sync.Mutex
	started int
	bar     *progressbar.ProgressBar
}

func newCountBar(out io.Writer, total int) *countBar {
	return &countBar{
		out: out,
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionSetWriter(out),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(ProgressWidth),
			progressbar.OptionThrottle(ProgressThrottle),
		),
	}
}

// Observe is an orchestrator.Hooks.OnEvent callback.
func (c *countBar) Observe(e orchestrator.Event) {
	if e.Phase != orchestrator.PhaseExtracting {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	if c.started > 0 {
		_ = c.bar.Add(1)
	}
	c.started++
	c.bar.Describe(e.ID)
}

// Finish counts the last archive and fills the bar. Calling it again is a
// no-op.
func (c *countBar) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar == nil {
		return
	}
	if c.started > 0 {
		_ = c.bar.Add(1)
	}
	_ = c.bar.Finish()
	_, _ = io.WriteString(c.out, "\n")
	c.bar = nil
}
