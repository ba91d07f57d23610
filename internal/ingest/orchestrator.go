// Package ingest coordinates the three artifact normalizers and merges
// their output into one deterministic document stream. Artifacts are
// processed concurrently; a failure in one artifact is reported per
// artifact and never aborts the rest of the batch.
package ingest

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/terrascope/ingest/internal/models"
	"github.com/terrascope/ingest/internal/parser"
)

// Artifact is one named input: a configuration file, a state snapshot, or
// a change-set document.
type Artifact struct {
	Name   string `json:"name"`
	Source []byte `json:"source"`
}

// Batch is one normalization request. ExternalIDs maps normalized resource
// addresses to identifiers in an external system of record.
type Batch struct {
	ConfigFiles []Artifact        `json:"config_files,omitempty"`
	States      []Artifact        `json:"states,omitempty"`
	Plans       []Artifact        `json:"plans,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
}

// Result is the merged output of one batch. Documents are sorted by ID and
// Linkages by address, so equal inputs serialize to equal bytes.
type Result struct {
	Documents []models.Document      `json:"documents"`
	Blocks    []models.ConfigBlock   `json:"blocks,omitempty"`
	Linkages  []models.Linkage       `json:"linkages,omitempty"`
	Errors    []models.ArtifactError `json:"errors,omitempty"`
}

// DocumentWriter receives finished documents, typically an index or a
// vector store client.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc models.Document) error
}

// Service runs normalization batches. Safe for concurrent use.
type Service struct {
	parser     *parser.ConfigParser
	normalizer *parser.StateNormalizer
	analyzer   *parser.PlanAnalyzer
	log        hclog.Logger
	limit      int
}

type Option func(*Service)

func WithLogger(log hclog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithNormalizerConfig(cfg parser.NormalizerConfig) Option {
	return func(s *Service) { s.normalizer = parser.NewStateNormalizer(cfg) }
}

// WithConcurrency caps the number of artifacts processed at once. Values
// below one fall back to the CPU count.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		parser:     parser.NewConfigParser(),
		normalizer: parser.NewStateNormalizer(parser.DefaultNormalizerConfig()),
		analyzer:   parser.NewPlanAnalyzer(),
		log:        hclog.NewNullLogger(),
		limit:      runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type configSlot struct {
	blocks []models.ConfigBlock
	err    error
}

type stateSlot struct {
	meta      *models.StateMetadata
	instances []models.StateResourceInstance
	err       error
}

type planSlot struct {
	summary *models.PlanSummary
	changes []models.PlannedChange
	err     error
}

// Run processes every artifact in the batch and merges the results. The
// only returned error is a context error when the batch could not start at
// all; per-artifact failures land in Result.Errors instead.
func (s *Service) Run(ctx context.Context, batch Batch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configSlots := make([]configSlot, len(batch.ConfigFiles))
	stateSlots := make([]stateSlot, len(batch.States))
	planSlots := make([]planSlot, len(batch.Plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for i, art := range batch.ConfigFiles {
		i, art := i, art
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				configSlots[i].err = err
				return nil
			}
			configSlots[i].blocks, configSlots[i].err = s.parser.ParseFile(art.Name, art.Source)
			return nil
		})
	}
	for i, art := range batch.States {
		i, art := i, art
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				stateSlots[i].err = err
				return nil
			}
			stateSlots[i].meta, stateSlots[i].instances, stateSlots[i].err = s.normalizer.Normalize(art.Source)
			return nil
		})
	}
	for i, art := range batch.Plans {
		i, art := i, art
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				planSlots[i].err = err
				return nil
			}
			planSlots[i].summary, planSlots[i].changes, planSlots[i].err = s.analyzer.Analyze(art.Source)
			return nil
		})
	}

	// Tasks record failures in their slots and never return errors, so the
	// wait cannot fail.
	_ = g.Wait()

	res := &Result{}
	links := newLinker(batch.ExternalIDs)

	var allBlocks []models.ConfigBlock
	for i, slot := range configSlots {
		if slot.err != nil {
			res.Errors = append(res.Errors, artifactError(batch.ConfigFiles[i].Name, slot.err))
			continue
		}
		allBlocks = append(allBlocks, slot.blocks...)
	}
	// Implicit references resolve across the whole batch, so the scan runs
	// after fan-in over every successfully parsed file.
	parser.ScanReferences(allBlocks)
	res.Blocks = allBlocks

	for _, b := range allBlocks {
		if b.Kind != models.KindResource && b.Kind != models.KindDataSource {
			continue
		}
		links.addConfig(b)
		res.Documents = append(res.Documents, configDocument(b, links.externalID(NormalizeAddress(b.Address))))
	}

	for i, slot := range stateSlots {
		if slot.err != nil {
			res.Errors = append(res.Errors, artifactError(batch.States[i].Name, slot.err))
			continue
		}
		id := stateID(batch.States[i].Name, slot.meta)
		for _, inst := range slot.instances {
			links.addState(inst)
			res.Documents = append(res.Documents, stateDocument(id, inst, links.externalID(NormalizeAddress(inst.Address))))
		}
	}

	for i, slot := range planSlots {
		if slot.err != nil {
			res.Errors = append(res.Errors, artifactError(batch.Plans[i].Name, slot.err))
			continue
		}
		name := batch.Plans[i].Name
		for _, c := range slot.changes {
			links.addChange(c)
			res.Documents = append(res.Documents, changeDocument(name, c, links.externalID(NormalizeAddress(c.Address))))
		}
		res.Documents = append(res.Documents, summaryDocument(name, slot.summary))
	}

	sort.Slice(res.Documents, func(i, j int) bool { return res.Documents[i].ID < res.Documents[j].ID })
	res.Linkages = links.linkages()

	s.log.Info("batch normalized",
		"documents", len(res.Documents),
		"linkages", len(res.Linkages),
		"errors", len(res.Errors),
	)
	return res, nil
}

// Publish streams a result's documents to a writer in ID order.
func (s *Service) Publish(ctx context.Context, w DocumentWriter, res *Result) error {
	for _, doc := range res.Documents {
		if err := w.WriteDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func artifactError(name string, err error) models.ArtifactError {
	kind := "internal"
	var (
		parseErr   *parser.ParseError
		versionErr *parser.UnsupportedStateVersionError
		actionErr  *parser.InvalidActionError
		missingErr *parser.MissingFieldError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		kind = "deadline_exceeded"
	case errors.As(err, &parseErr):
		kind = "syntax"
	case errors.As(err, &versionErr):
		kind = "unsupported_state_version"
	case errors.As(err, &actionErr):
		kind = "invalid_action"
	case errors.As(err, &missingErr):
		kind = "missing_field"
	}
	return models.ArtifactError{Artifact: name, Kind: kind, Message: err.Error()}
}
