// Package service wires the git-intelligence components behind one
// synchronous facade. Callers (the CLI today, a server later) talk to
// this surface only.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibeboard/vibeboard/internal/analytics"
	"github.com/vibeboard/vibeboard/internal/branches"
	"github.com/vibeboard/vibeboard/internal/config"
	"github.com/vibeboard/vibeboard/internal/correlate"
	"github.com/vibeboard/vibeboard/internal/gitrepo"
	"github.com/vibeboard/vibeboard/internal/ingest"
	"github.com/vibeboard/vibeboard/internal/models"
	"github.com/vibeboard/vibeboard/internal/storage"
)

// Service exposes the git-intelligence operations for configured
// projects.
type Service struct {
	cfg        *config.Config
	registry   *config.Registry
	cache      *gitrepo.Cache
	store      storage.Store
	pipeline   *ingest.Pipeline
	analyzer   *branches.Analyzer
	engine     *correlate.Engine
	aggregator *analytics.Aggregator
	logger     *logrus.Logger
}

// New builds a service from configuration: opens the store, verifies
// nothing eagerly, and wires every component.
func New(cfg *config.Config, logger *logrus.Logger) (*Service, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := config.NewRegistry(cfg.Projects)
	cache := gitrepo.NewCache(registry, gitrepo.CacheOptions{
		CommandTimeout:    cfg.Git.CommandTimeout,
		CommandsPerSecond: cfg.Git.CommandsPerSecond,
	}, logger)

	var matcher correlate.AuthorMatcher
	if cfg.Correlate.AuthorMatcher == "email" {
		matcher = correlate.EmailMatch{}
	}

	return &Service{
		cfg:        cfg,
		registry:   registry,
		cache:      cache,
		store:      store,
		pipeline:   ingest.NewPipeline(ingestProvider{cache}, store, logger, cfg.Ingest.BatchSize),
		analyzer:   branches.NewAnalyzer(branchProvider{cache}, store, logger),
		engine:     correlate.NewEngine(store, store, matcher, logger),
		aggregator: analytics.NewAggregator(store, logger),
		logger:     logger,
	}, nil
}

func openStore(cfg *config.Config, logger *logrus.Logger) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN, logger)
	default:
		return storage.NewSQLiteStore(cfg.Storage.LocalPath, logger)
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// ProjectIDs lists every configured project.
func (s *Service) ProjectIDs() []string {
	return s.registry.ProjectIDs()
}

// IngestCommits walks a project's history and persists commits, file
// changes, and branch rows.
func (s *Service) IngestCommits(ctx context.Context, projectID string, opts ingest.Options) (*ingest.Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.Ingest.DefaultLimit
	}
	if !opts.IncludeBinary {
		opts.IncludeBinary = s.cfg.Ingest.IncludeBinary
	}
	return s.pipeline.Ingest(ctx, projectID, opts)
}

// IngestAllProjects ingests every configured project concurrently.
func (s *Service) IngestAllProjects(ctx context.Context, opts ingest.Options) (map[string]*ingest.Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.Ingest.DefaultLimit
	}
	return s.pipeline.IngestAll(ctx, s.registry.ProjectIDs(), opts)
}

// GetRecentCommits returns commits from the last N hours, optionally
// narrowed to a branch or author.
func (s *Service) GetRecentCommits(ctx context.Context, projectID string, hours int, branch, author string) ([]*models.Commit, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	return s.store.ListCommits(ctx, projectID, storage.CommitFilter{
		Since:  &since,
		Branch: branch,
		Author: author,
	})
}

// GetBranches returns the reconciled branch report for a project.
func (s *Service) GetBranches(ctx context.Context, projectID string, opts branches.BranchOptions) (*branches.BranchReport, error) {
	return s.analyzer.Branches(ctx, projectID, opts)
}

// GetFileHotspots ranks a project's frequently changed files by risk.
func (s *Service) GetFileHotspots(ctx context.Context, projectID string, opts analytics.HotspotOptions) ([]models.Hotspot, error) {
	return s.aggregator.Hotspots(ctx, projectID, opts)
}

// GetProjectGitStats summarizes a project's commit activity.
func (s *Service) GetProjectGitStats(ctx context.Context, projectID string) (*analytics.ProjectStats, error) {
	return s.aggregator.ProjectStats(ctx, projectID)
}

// CorrelateSessions links persisted commits to recorded sessions.
func (s *Service) CorrelateSessions(ctx context.Context, projectID string, opts correlate.CorrelateOptions) (*correlate.CorrelationResult, error) {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = s.cfg.Correlate.ConfidenceThreshold
	}
	return s.engine.Correlate(ctx, projectID, opts)
}

// TrackFileChanges re-extracts file changes for one persisted commit.
func (s *Service) TrackFileChanges(ctx context.Context, projectID, hash string) ([]*models.FileChange, error) {
	return s.pipeline.Tracker().TrackChanges(ctx, projectID, hash, s.cfg.Ingest.IncludeBinary)
}

// ingestProvider and branchProvider adapt the handle cache to the
// consumer-side interfaces of each component.

type ingestProvider struct{ cache *gitrepo.Cache }

func (p ingestProvider) Repo(ctx context.Context, projectID string) (ingest.Repo, error) {
	return p.cache.Get(ctx, projectID)
}

type branchProvider struct{ cache *gitrepo.Cache }

func (p branchProvider) Repo(ctx context.Context, projectID string) (branches.Repo, error) {
	return p.cache.Get(ctx, projectID)
}
