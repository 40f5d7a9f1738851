// Package indexer keeps a semantic index of persisted skills so that the
// synthesizer can show the closest existing skills as examples.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/embeddings"
	"github.com/snow-ghost/sleuth/vectordb"
	"go.uber.org/zap"
)

// Indexer embeds skill descriptions. Skills sharing a description occupy one
// slot, pointing at the most recently indexed skill.
type Indexer struct {
	embedder    embeddings.Embedder
	vectorStore vectordb.VectorStore
	skills      core.SkillStore
	logger      *zap.Logger
}

func NewIndexer(embedder embeddings.Embedder, vectorStore vectordb.VectorStore, skills core.SkillStore, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{embedder: embedder, vectorStore: vectorStore, skills: skills, logger: logger}
}

// IndexSkill adds or refreshes skill in the index.
func (i *Indexer) IndexSkill(ctx context.Context, skill core.Skill) error {
	vec, err := i.embedder.EmbedText(ctx, skill.Description)
	if err != nil {
		return fmt.Errorf("failed to create embedding: %w", err)
	}
	meta := map[string]string{
		"skill_id":  skill.ID,
		"file_path": skill.FilePath,
		"origin":    skill.Origin,
	}
	if err := i.vectorStore.Upsert(ctx, skill.Description, vec, meta); err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

// Rebuild indexes every stored skill in creation order, so the newest
// skill per description ends up indexed.
func (i *Indexer) Rebuild(ctx context.Context) (int, error) {
	all, err := i.skills.ListSkills(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list skills: %w", err)
	}
	for _, sk := range all {
		if err := i.IndexSkill(ctx, sk); err != nil {
			return 0, fmt.Errorf("failed to index skill %s: %w", sk.ID, err)
		}
	}
	n, err := i.vectorStore.Count(ctx)
	if err != nil {
		return 0, err
	}
	i.logger.Info("skill index rebuilt", zap.Int("skills", len(all)), zap.Int("descriptions", n))
	return n, nil
}

// Similar returns up to k skills whose descriptions are nearest to description.
// Index entries whose skill no longer resolves are skipped.
func (i *Indexer) Similar(ctx context.Context, description string, k int) ([]core.Skill, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := i.embedder.EmbedText(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	hits, err := i.vectorStore.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	out := make([]core.Skill, 0, len(hits))
	for _, hit := range hits {
		sk, err := i.skills.GetSkill(ctx, hit.Meta["skill_id"])
		if errors.Is(err, core.ErrNotFound) {
			i.logger.Warn("indexed skill is missing", zap.String("description", hit.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sk)
	}
	return out, nil
}
