package core

import (
	"sort"
)

// Pipeline holds a collection of rewriters and manages their execution
type Pipeline struct {
	rewriters []Rewriter
}

// NewPipeline creates a new pipeline instance
func NewPipeline() *Pipeline {
	return &Pipeline{
		rewriters: make([]Rewriter, 0),
	}
}

// AddRewriter adds a rewriter to the pipeline
func (p *Pipeline) AddRewriter(rw Rewriter) {
	p.rewriters = append(p.rewriters, rw)
}

// Execute runs all rewriters in priority order. The first error aborts the
// run; later rewriters observe header and body mutations made by earlier
// ones.
func (p *Pipeline) Execute(ctx *ProxyContext, req *Request) error {
	// Create a copy of rewriters to avoid modifying the original slice
	sorted := make([]Rewriter, len(p.rewriters))
	copy(sorted, p.rewriters)

	// Sort rewriters by priority (lower number = higher priority = runs earlier)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	for _, rw := range sorted {
		if err := rw.Rewrite(ctx, req); err != nil {
			return err
		}
	}

	return nil
}
