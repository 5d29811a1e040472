package merger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/table-joiner/internal/config"
	"github.com/GoogleCloudPlatform/table-joiner/internal/database"
	"github.com/GoogleCloudPlatform/table-joiner/internal/joiner"
	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
	"github.com/GoogleCloudPlatform/table-joiner/internal/utils"
)

// Source is one side of the join.
type Source struct {
	Path  string // Delimited text file
	Table string // Database table, used instead of Path when set
}

func (s Source) String() string {
	if s.Table != "" {
		return "table " + s.Table
	}
	return s.Path
}

// Params describes a single merge.
type Params struct {
	Left       Source
	Right      Source
	Output     string
	Join       joiner.Options
	Format     table.Options
	Years      *joiner.YearRange // Optional, applied to both sides before the join
	YearColumn string            // Key column the per-year report groups by
}

// Result summarizes a completed merge.
type Result struct {
	Output     string
	LeftRows   int
	RightRows  int
	JoinedRows int
	Columns    []string
}

// Report holds the key cardinality of both sides.
type Report struct {
	Left    joiner.KeyStats
	Right   joiner.KeyStats
	Overlap joiner.Overlap
	ByYear  []joiner.ValueOverlap // Nil unless YearColumn is a key column
}

// Opener connects to the database holding table sources.
type Opener func(ctx context.Context) (database.TableSource, error)

// Service runs merges.
type Service struct {
	openDB Opener
	logger *zap.Logger
}

// NewService returns a Service. openDB may be nil when no side is a table.
func NewService(openDB Opener, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		openDB: openDB,
		logger: logger,
	}
}

// ParamsFromConfig builds merge parameters from the merge section of cfg.
func ParamsFromConfig(cfg config.MergeConfig) (Params, error) {
	delimiter, err := utils.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return Params{}, err
	}
	params := Params{
		Left:   Source{Path: cfg.Left, Table: cfg.LeftTable},
		Right:  Source{Path: cfg.Right, Table: cfg.RightTable},
		Output: cfg.Output,
		Join: joiner.Options{
			Keys:        cfg.Keys,
			NumericKeys: cfg.NumericKeys,
			Suffix:      cfg.Suffix,
		},
		Format:     table.Options{Delimiter: delimiter},
		YearColumn: cfg.YearColumn,
	}
	if cfg.Years != "" {
		if params.YearColumn == "" {
			return Params{}, fmt.Errorf("a year range needs a year column")
		}
		params.Years, err = joiner.ParseYearRange(params.YearColumn, cfg.Years)
		if err != nil {
			return Params{}, err
		}
	}
	return params, nil
}

// Run reads both sides, inner joins them and writes the result to
// params.Output. Nothing is written when any step fails.
func (s *Service) Run(ctx context.Context, params Params) (*Result, error) {
	if params.Output == "" {
		return nil, fmt.Errorf("no output path given")
	}
	startTime := time.Now()

	left, right, err := s.load(ctx, params)
	if err != nil {
		return nil, err
	}

	joinStart := time.Now()
	joined, err := joiner.InnerJoin(left, right, params.Join)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Joined tables",
		zap.Int("rows", joined.Len()),
		zap.Int("columns", joined.Width()),
		zap.Duration("duration", time.Since(joinStart)),
	)
	if joined.Len() == 0 {
		s.logger.Warn("No key is present in both inputs, output has a header only",
			zap.Strings("keys", params.Join.Keys),
		)
	}

	writeStart := time.Now()
	if err := table.WriteFile(params.Output, joined, params.Format); err != nil {
		return nil, err
	}
	s.logger.Info("Wrote merged table",
		zap.String("path", params.Output),
		zap.Duration("duration", time.Since(writeStart)),
	)

	s.logger.Debug("Merge finished", zap.Duration("total", time.Since(startTime)))
	return &Result{
		Output:     params.Output,
		LeftRows:   left.Len(),
		RightRows:  right.Len(),
		JoinedRows: joined.Len(),
		Columns:    joined.Header(),
	}, nil
}

// Inspect reads both sides and reports their key cardinality without joining.
func (s *Service) Inspect(ctx context.Context, params Params) (*Report, error) {
	left, right, err := s.load(ctx, params)
	if err != nil {
		return nil, err
	}

	leftIndex, err := joiner.BuildIndex(left, params.Join)
	if err != nil {
		return nil, err
	}
	rightIndex, err := joiner.BuildIndex(right, params.Join)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Left:    leftIndex.Stats(),
		Right:   rightIndex.Stats(),
		Overlap: leftIndex.Overlap(rightIndex),
	}
	if isKey(params.Join.Keys, params.YearColumn) {
		report.ByYear, err = leftIndex.OverlapBy(rightIndex, params.YearColumn)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// load reads the two sides concurrently. The first failure cancels the other.
func (s *Service) load(ctx context.Context, params Params) (*table.Table, *table.Table, error) {
	var db database.TableSource
	if params.Left.Table != "" || params.Right.Table != "" {
		if s.openDB == nil {
			return nil, nil, fmt.Errorf("table source requested but no database is configured")
		}
		var err error
		db, err = s.openDB(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
	}

	var left, right *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = s.loadSource(gctx, db, params.Left, params)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = s.loadSource(gctx, db, params.Right, params)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (s *Service) loadSource(ctx context.Context, db database.TableSource, src Source, params Params) (*table.Table, error) {
	startTime := time.Now()

	var (
		t   *table.Table
		err error
	)
	switch {
	case src.Table != "":
		t, err = db.LoadTable(ctx, src.Table, params.Join.Keys)
	case src.Path != "":
		t, err = table.ReadFile(ctx, src.Path, params.Format)
	default:
		err = fmt.Errorf("input source has neither a path nor a table")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded table",
		zap.String("source", src.String()),
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()),
		zap.Duration("duration", time.Since(startTime)),
	)

	if params.Years != nil {
		loaded := t.Len()
		t, err = joiner.FilterYears(t, *params.Years)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Filtered table by year",
			zap.String("source", src.String()),
			zap.Stringer("years", params.Years),
			zap.Int("kept", t.Len()),
			zap.Int("dropped", loaded-t.Len()),
		)
	}
	return t, nil
}

func isKey(keys []string, column string) bool {
	for _, k := range keys {
		if k == column {
			return true
		}
	}
	return false
}
