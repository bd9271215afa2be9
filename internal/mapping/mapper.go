// Package mapping links claims to the document chunks that support them.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/model"
)

// SourceMapper queries the document store for each claim and keeps the
// chunks that align well enough, best first
type SourceMapper struct {
	cfg     model.MapperConfig
	aligner *Aligner
}

// NewSourceMapper creates a source mapper
func NewSourceMapper(cfg model.MapperConfig, analyzer analysis.Analyzer) *SourceMapper {
	return &SourceMapper{cfg: cfg, aligner: NewAligner(cfg, analyzer)}
}

// Map returns a copy of claims with Sources, HasSource and Candidates set.
// Claims are mapped in parallel up to the configured concurrency and come
// back in input order. A store query that exceeds the per-query timeout
// leaves that claim without sources; cancelling ctx fails the whole call.
func (m *SourceMapper) Map(ctx context.Context, claims []model.Claim, store model.DocumentStore) ([]model.Claim, error) {
	out := make([]model.Claim, len(claims))
	copy(out, claims)

	g, gctx := errgroup.WithContext(ctx)
	if m.cfg.Concurrency > 0 {
		g.SetLimit(m.cfg.Concurrency)
	}
	for i := range out {
		g.Go(func() error {
			return m.mapClaim(gctx, &out[i], store)
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return out, nil
}

func (m *SourceMapper) mapClaim(ctx context.Context, claim *model.Claim, store model.DocumentStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	claim.Sources = []model.SourceMatch{}
	claim.HasSource = false

	chunks, err := m.candidates(ctx, claim, store)
	if err != nil {
		if errors.Is(err, errQueryTimeout) {
			claim.Notes = fmt.Sprintf("document store query timed out after %s", m.cfg.QueryTimeout)
			zap.L().Warn("candidate query timed out", zap.String("claim_id", claim.ID), zap.Duration("timeout", m.cfg.QueryTimeout))
			return nil
		}
		return err
	}
	claim.Candidates = len(chunks)

	f, err := m.aligner.features(ctx, claim)
	if err != nil {
		return analyzerError(err)
	}

	var matches []model.SourceMatch
	best := 0.0
	for _, chunk := range chunks {
		a, err := m.aligner.align(ctx, f, chunk)
		if err != nil {
			return analyzerError(err)
		}
		best = max(best, a.Score)
		if a.Score < m.cfg.MinAlignmentScore {
			continue
		}
		matches = append(matches, model.SourceMatch{
			DocumentID:     chunk.SourceDocument,
			ChunkID:        chunk.ID,
			AlignmentScore: a.Score,
			TextExcerpt:    a.Excerpt,
		})
	}

	sortMatches(matches)
	if len(matches) > m.cfg.MaxSourcesPerClaim {
		matches = matches[:m.cfg.MaxSourcesPerClaim]
	}
	if matches != nil {
		claim.Sources = matches
	}
	claim.HasSource = len(claim.Sources) > 0 && claim.Sources[0].AlignmentScore >= m.cfg.MinAlignmentScore

	switch {
	case claim.HasSource:
		claim.Notes = fmt.Sprintf("found %d supporting sources", len(claim.Sources))
	case len(chunks) == 0:
		claim.Notes = "no candidate chunks"
	default:
		claim.Notes = fmt.Sprintf("%d candidates, best alignment %.2f below %.2f", len(chunks), best, m.cfg.MinAlignmentScore)
	}

	zap.L().Debug("claim mapped",
		zap.String("claim_id", claim.ID),
		zap.String("type", string(claim.Type)),
		zap.Int("candidates", len(chunks)),
		zap.Int("sources", len(claim.Sources)),
		zap.Float64("best", best),
	)
	return nil
}

var errQueryTimeout = errors.New("query timeout")

// candidates runs the bounded store query and validates what comes back
func (m *SourceMapper) candidates(ctx context.Context, claim *model.Claim, store model.DocumentStore) ([]model.DocumentChunk, error) {
	qctx := ctx
	if m.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, m.cfg.QueryTimeout)
		defer cancel()
	}

	started := time.Now()
	chunks, err := query(qctx, claim, store, m.cfg.MaxCandidates)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || qctx.Err() != nil {
			return nil, errQueryTimeout
		}
		if model.KindOf(err) != "" {
			return nil, err
		}
		return nil, model.Unavailable("mapping.get_candidates", err)
	}
	zap.L().Debug("candidates fetched", zap.String("claim_id", claim.ID), zap.Int("count", len(chunks)), zap.Duration("took", time.Since(started)))

	if len(chunks) > m.cfg.MaxCandidates {
		chunks = chunks[:m.cfg.MaxCandidates]
	}
	seen := make(map[string]bool, len(chunks))
	unique := chunks[:0:0]
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
	}
	return unique, nil
}

type candidateReply struct {
	chunks []model.DocumentChunk
	err    error
}

// query returns when the store answers or ctx is done, whichever comes
// first. A store that ignores ctx is left running in the background.
func query(ctx context.Context, claim *model.Claim, store model.DocumentStore, limit int) ([]model.DocumentChunk, error) {
	reply := make(chan candidateReply, 1)
	go func() {
		chunks, err := store.GetCandidates(ctx, claim.Text, model.EntityTexts(claim.Entities), limit)
		reply <- candidateReply{chunks: chunks, err: err}
	}()
	select {
	case r := <-reply:
		if r.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.chunks, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func analyzerError(err error) error {
	if model.KindOf(err) != "" || errors.Is(err, context.Canceled) {
		return err
	}
	return model.Unavailable("mapping.tokenize", err)
}

// sortMatches orders by score, then shorter excerpt, then chunk ID
func sortMatches(matches []model.SourceMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.AlignmentScore != b.AlignmentScore {
			return a.AlignmentScore > b.AlignmentScore
		}
		if len(a.TextExcerpt) != len(b.TextExcerpt) {
			return len(a.TextExcerpt) < len(b.TextExcerpt)
		}
		return a.ChunkID < b.ChunkID
	})
}
