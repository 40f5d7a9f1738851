package worker

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/sleuth/core"
	kbfs "github.com/snow-ghost/sleuth/kb/fs"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SkillSynthesizer produces a new skill for a description.
type SkillSynthesizer interface {
	Synthesize(ctx context.Context, description string) (core.Skill, error)
}

// Resolver finds the skill answering a task description: stored skills
// first, then the skill tree, then synthesis. Concurrent lookups of one
// description share a single resolution.
type Resolver struct {
	group  singleflight.Group
	skills core.SkillStore
	tree   *kbfs.Tree
	synth  SkillSynthesizer
	index  SkillIndex // optional
	cache  *lru.Cache[string, core.Skill]
	rec    *telemetry.Recorder
	logger *zap.Logger
}

func NewResolver(skills core.SkillStore, tree *kbfs.Tree, synth SkillSynthesizer, index SkillIndex, cacheSize int, rec *telemetry.Recorder) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, core.Skill](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create skill cache: %w", err)
	}
	if rec == nil {
		rec = telemetry.Nop()
	}
	return &Resolver{
		skills: skills,
		tree:   tree,
		synth:  synth,
		index:  index,
		cache:  cache,
		rec:    rec,
		logger: rec.Logger(),
	}, nil
}

func (r *Resolver) Resolve(ctx context.Context, description string) (core.Skill, error) {
	if sk, ok := r.cache.Get(description); ok {
		r.rec.SkillCacheLookup(true)
		return sk, nil
	}
	r.rec.SkillCacheLookup(false)

	v, err, _ := r.group.Do(description, func() (any, error) {
		return r.resolve(ctx, description)
	})
	if err != nil {
		return core.Skill{}, err
	}
	return v.(core.Skill), nil
}

func (r *Resolver) resolve(ctx context.Context, description string) (core.Skill, error) {
	stored, err := r.skills.FindSkill(ctx, description)
	switch {
	case err == nil:
		r.cache.Add(description, *stored)
		return *stored, nil
	case !errors.Is(err, core.ErrNotFound):
		return core.Skill{}, fmt.Errorf("failed to look up skill: %w", err)
	}

	entry, ok, err := r.tree.Find(description)
	if err != nil {
		return core.Skill{}, err
	}
	if ok {
		sk, err := r.register(ctx, entry)
		if err != nil {
			return core.Skill{}, err
		}
		r.logger.Info("skill imported from tree", zap.String("skill_id", sk.ID), zap.String("file_path", sk.FilePath))
		return sk, nil
	}

	if r.synth == nil {
		return core.Skill{}, fmt.Errorf("no skill for %q: %w", description, core.ErrNotFound)
	}
	sk, err := r.synth.Synthesize(ctx, description)
	if err != nil {
		return core.Skill{}, err
	}
	r.cache.Add(description, sk)
	return sk, nil
}

// ImportTree registers every described file of the tree whose description
// has no stored skill yet. It returns the number of new skills.
func (r *Resolver) ImportTree(ctx context.Context) (int, error) {
	entries, err := r.tree.Scan()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		_, err := r.skills.FindSkill(ctx, e.Description)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return n, fmt.Errorf("failed to look up skill: %w", err)
		}
		if _, err := r.register(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *Resolver) register(ctx context.Context, e kbfs.Entry) (core.Skill, error) {
	sk := core.Skill{
		Description: e.Description,
		Code:        e.Code,
		FilePath:    e.RelPath,
		Origin:      core.OriginSeeded,
	}
	if err := r.skills.CreateSkill(ctx, &sk); err != nil {
		return core.Skill{}, fmt.Errorf("failed to register skill %s: %w", e.RelPath, err)
	}
	if r.index != nil {
		if err := r.index.IndexSkill(ctx, sk); err != nil {
			r.logger.Warn("failed to index skill", zap.String("skill_id", sk.ID), zap.Error(err))
		}
	}
	r.cache.Add(sk.Description, sk)
	return sk, nil
}
