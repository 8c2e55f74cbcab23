package main

import (
	"context"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/city-pulse/internal/export"
	"github.com/sells-group/city-pulse/internal/metrics"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
	"github.com/sells-group/city-pulse/internal/store"
	"github.com/sells-group/city-pulse/internal/synth"
)

const targetDB = "db"

var (
	generateFormat    string
	generateClear     bool
	generateSeed      uint64
	generateDining    int
	generateLeisure   int
	generateDays      int
	generateAlerts    int
	generateBatchSize int
	generateProfile   string
	generateOut       string
)

// generateOptions is one resolved generate invocation.
type generateOptions struct {
	ToDB      bool
	Files     []export.Format
	Clear     bool
	Seed      uint64
	Counts    synth.Counts
	BatchSize int
	Profile   string
	OutputDir string
}

// generateResult summarizes a run for the console.
type generateResult struct {
	RunID    string
	Seed     uint64
	Counts   map[string]int
	Inserted map[string]int64
	Manifest *export.Manifest
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic city and load or export it",
	Long:  "Generates regions, brands, dining and leisure venues, hourly signals, and alerts. --format selects targets: db, csv, json, xlsx, shp, or all; several may be given comma-separated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := resolveGenerateOptions(cmd)
		if err != nil {
			return err
		}

		res, err := runGenerate(cmd.Context(), opts, initStore)
		if err != nil {
			return err
		}
		printGenerateSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

// resolveGenerateOptions merges config with any flags set on the command line.
func resolveGenerateOptions(cmd *cobra.Command) (generateOptions, error) {
	g := cfg.Generate
	flags := cmd.Flags()
	if flags.Changed("format") {
		g.Format = generateFormat
	}
	if flags.Changed("seed") {
		g.Seed = generateSeed
	}
	if flags.Changed("dining") {
		g.Dining = generateDining
	}
	if flags.Changed("leisure") {
		g.Leisure = generateLeisure
	}
	if flags.Changed("days") {
		g.Days = generateDays
	}
	if flags.Changed("alerts") {
		g.Alerts = generateAlerts
	}
	if flags.Changed("batch-size") {
		g.BatchSize = generateBatchSize
	}
	if flags.Changed("profile") {
		g.Profile = generateProfile
	}
	if flags.Changed("out") {
		g.OutputDir = generateOut
	}
	cfg.Generate = g

	if err := cfg.Validate("generate"); err != nil {
		return generateOptions{}, err
	}

	toDB, files, err := parseTargets(g.Format)
	if err != nil {
		return generateOptions{}, err
	}
	if toDB {
		if err := cfg.Validate("db"); err != nil {
			return generateOptions{}, err
		}
	}

	return generateOptions{
		ToDB:      toDB,
		Files:     files,
		Clear:     generateClear,
		Seed:      g.Seed,
		Counts:    synth.Counts{DiningVenues: g.Dining, LeisureVenues: g.Leisure, Days: g.Days, Alerts: g.Alerts},
		BatchSize: g.BatchSize,
		Profile:   g.Profile,
		OutputDir: g.OutputDir,
	}, nil
}

// parseTargets splits a comma-separated --format value into the database
// target and file formats. "all" selects every target.
func parseTargets(s string) (bool, []export.Format, error) {
	var toDB bool
	var files []export.Format
	seen := make(map[export.Format]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case targetDB:
			toDB = true
			continue
		case "all":
			toDB = true
			for _, f := range export.AllFormats {
				if !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return false, nil, err
		}
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	if !toDB && len(files) == 0 {
		return false, nil, eris.Errorf("generate: no output target in %q", s)
	}
	return toDB, files, nil
}

// runGenerate builds the dataset and writes it to every target. open is
// called only when the database is a target.
func runGenerate(ctx context.Context, opts generateOptions, open func(context.Context) (store.Store, error)) (*generateResult, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("component", "generate"), zap.String("run_id", runID))

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	profile, err := loadProfile(opts.Profile)
	if err != nil {
		return nil, err
	}

	gen := synth.NewGenerator(profile, rand.New(rand.NewPCG(seed, seed)))
	ds, err := gen.Generate(opts.Counts)
	if err != nil {
		return nil, eris.Wrap(err, "generate: build dataset")
	}
	counts := ds.Counts()
	for table, n := range counts {
		metrics.RowsGenerated.WithLabelValues(table).Add(float64(n))
	}
	log.Info("dataset generated", zap.Uint64("seed", seed), zap.Any("counts", counts))

	res := &generateResult{RunID: runID, Seed: seed, Counts: counts}

	if opts.ToDB {
		inserted, err := loadIntoStore(ctx, open, ds, opts)
		if err != nil {
			return nil, err
		}
		res.Inserted = inserted
	}

	if len(opts.Files) > 0 {
		m, err := export.WriteDir(opts.OutputDir, ds, opts.Files, export.Manifest{
			RunID:       runID,
			GeneratedAt: time.Now(),
			Seed:        seed,
		})
		if err != nil {
			return nil, err
		}
		res.Manifest = m
		log.Info("dataset exported", zap.String("dir", opts.OutputDir), zap.Int("files", len(m.Files)))
	}

	return res, nil
}

func loadProfile(path string) (*synth.Profile, error) {
	if path == "" {
		return synth.DefaultProfile()
	}
	return synth.LoadProfile(path)
}

func loadIntoStore(ctx context.Context, open func(context.Context) (store.Store, error), ds *model.Dataset, opts generateOptions) (map[string]int64, error) {
	st, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "generate: migrate store")
	}
	return store.LoadDataset(ctx, st, ds, store.LoadOptions{Clear: opts.Clear, BatchSize: opts.BatchSize})
}

func printGenerateSummary(w io.Writer, res *generateResult) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "run %s (seed %d)\n", res.RunID, res.Seed)
	for _, table := range schema.LoadOrder {
		line := p.Sprintf("  %-16s %8d generated", table, res.Counts[table])
		if res.Inserted != nil {
			line += p.Sprintf(", %d inserted", res.Inserted[table])
		}
		p.Fprintln(w, line)
	}
	if res.Manifest != nil {
		p.Fprintf(w, "wrote %d files\n", len(res.Manifest.Files))
	}
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFormat, "format", "", "output targets: db, csv, json, xlsx, shp, all (default from config)")
	f.BoolVar(&generateClear, "clear", false, "empty every table before inserting")
	f.Uint64Var(&generateSeed, "seed", 0, "random seed; 0 picks one from the clock")
	f.IntVar(&generateDining, "dining", 0, "dining venues to generate")
	f.IntVar(&generateLeisure, "leisure", 0, "leisure venues to generate")
	f.IntVar(&generateDays, "days", 0, "days of hourly signals")
	f.IntVar(&generateAlerts, "alerts", 0, "alerts to generate")
	f.IntVar(&generateBatchSize, "batch-size", 0, "rows per insert chunk")
	f.StringVar(&generateProfile, "profile", "", "YAML city profile (default built in)")
	f.StringVarP(&generateOut, "out", "o", "", "export directory for file formats")
	rootCmd.AddCommand(generateCmd)
}
