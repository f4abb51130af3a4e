package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/episim/internal/casedata"
	"github.com/san-kum/episim/internal/config"
	"github.com/san-kum/episim/internal/epi"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/export"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/optim"
	"github.com/san-kum/episim/internal/sim"
	"github.com/san-kum/episim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	dataFile   string
	casesFile  string
	popMode    string
	beta       float64
	gamma      float64
	proportion float64
	efficacy   float64
	steps      int
	integrator string
	segments   []string
	trackVacc  bool
	sequential bool
	workers    int
	// run
	before bool
	every  int
	// plot
	plotWidth   int
	plotHeight  int
	plotCompare bool
	plotWindow  int
	// clusters
	cluster  string
	top      int
	toSQLite string
	// sweep
	sweepAxes []string
	objective string
	peakLimit float64
	// serve
	addr string
)

func main() {
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("episim: ")

	rootCmd := &cobra.Command{
		Use:   "episim",
		Short: "SIR epidemic simulator with vaccination",
		RunE:  runTUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&dataFile, "data", "", "county case table (csv or sqlite)")
	pf.StringVar(&casesFile, "cases", "", "national confirmed-case series (csv or sqlite)")
	pf.StringVar(&popMode, "population", config.PopulationReference, "population mode: reference or table")
	pf.Float64Var(&beta, "beta", config.DefaultBeta, "transmission rate")
	pf.Float64Var(&gamma, "gamma", config.DefaultGamma, "recovery rate")
	pf.Float64Var(&proportion, "proportion", config.DefaultVaccinatedProportion, "vaccinated proportion")
	pf.Float64Var(&efficacy, "efficacy", config.DefaultVaccineEfficacy, "vaccine efficacy")
	pf.IntVar(&steps, "steps", sim.DefaultSteps, "number of time steps")
	pf.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4)")
	pf.StringSliceVar(&segments, "segment", nil, "cluster labels to simulate (default all)")
	pf.BoolVar(&trackVacc, "track-vaccinated", false, "keep immunized people in a separate V compartment")
	pf.BoolVar(&sequential, "sequential", false, "simulate segments one at a time")
	pf.IntVar(&workers, "workers", 0, "max concurrent segments (0 = unbounded)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one scenario and print the series",
		RunE:  runSimulation,
	}
	runCmd.Flags().BoolVar(&before, "before", false, "simulate without vaccine")
	runCmd.Flags().IntVar(&every, "every", 10, "print every n-th step")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare the epidemic before and after vaccination",
		RunE:  compareScenarios,
	}

	plotCmd := &cobra.Command{
		Use:       "plot [cases]",
		Short:     "plot the series in the terminal, or the national case curve",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"cases"},
		RunE:      plotScenario,
	}
	plotCmd.Flags().IntVar(&plotWindow, "window", 7, "days per window when judging the case trend")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")
	plotCmd.Flags().BoolVar(&plotCompare, "compare", false, "plot infected before and after vaccination")

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "export the before/after series (" + strings.Join(export.Formats(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE:  exportScenario,
	}

	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "summarize the case table by cluster",
		RunE:  listClusters,
	}
	clustersCmd.Flags().StringVar(&cluster, "cluster", "", "show one cluster in detail")
	clustersCmd.Flags().IntVar(&top, "top", 10, "counties to list")
	clustersCmd.Flags().StringVar(&toSQLite, "to-sqlite", "", "write the case table to a sqlite file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBETA\tGAMMA\tPROPORTION\tEFFICACY")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\n", name, p.Beta, p.Gamma, p.VaccinatedProportion, p.VaccineEfficacy)
			}
			return w.Flush()
		},
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive dashboard",
		RunE:  runTUI,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid-search vaccination parameters",
		Long: "Runs the vaccinated scenario over a parameter grid. Axes are name=values where name is one of " +
			strings.Join(optim.Parameters, ", ") + " and values is a list (0.2,0.4) or a range (0:1:0.1).",
		RunE: sweep,
	}
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "axis", []string{"proportion=0:1:0.1"}, "grid axis name=values")
	sweepCmd.Flags().StringVar(&objective, "objective", "peak_infected", "objective to minimize")
	sweepCmd.Flags().Float64Var(&peakLimit, "peak-limit", 0, "report the least coverage keeping the peak at or below this")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP API",
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	rootCmd.AddCommand(runCmd, compareCmd, plotCmd, exportCmd, clustersCmd, presetsCmd, sweepCmd, tuiCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, preset, config file and explicitly set flags,
// in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("beta") {
		cfg.Beta = beta
	}
	if flags.Changed("gamma") {
		cfg.Gamma = gamma
	}
	if flags.Changed("proportion") {
		cfg.VaccinatedProportion = proportion
	}
	if flags.Changed("efficacy") {
		cfg.VaccineEfficacy = efficacy
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("segment") {
		cfg.Segments = segments
	}
	if flags.Changed("data") {
		cfg.DataFile = dataFile
	}
	if flags.Changed("cases") {
		cfg.CasesFile = casesFile
	}
	if flags.Changed("population") {
		cfg.PopulationMode = popMode
	}
	if flags.Changed("track-vaccinated") {
		cfg.TrackVaccinated = trackVacc
	}
	if flags.Changed("sequential") {
		cfg.Sequential = sequential
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.New(cmd.Context(), cfg)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	p := exp.Params()
	if before {
		p.Proportion = 0
	}

	start := time.Now()
	res, err := exp.Simulate(cmd.Context(), p)
	if err != nil {
		return err
	}
	tr := res.Aggregate

	fmt.Printf("simulated %d segment(s) in %v\n\n", len(res.Segments), time.Since(start))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := "STEP\tS\tI\tR\t"
	if tr.HasVaccinated() {
		header = "STEP\tS\tI\tR\tV\t"
	}
	fmt.Fprintln(w, header)
	if every < 1 {
		every = 1
	}
	last := tr.Len() - 1
	if tr.HasVaccinated() {
		for i, pt := range tr.Points() {
			if i%every == 0 || i == last {
				fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t\n", pt.Step, pt.S, pt.I, pt.R, pt.V)
			}
		}
	} else {
		for i, row := range tr.Rows() {
			if i%every == 0 || i == last {
				fmt.Fprintf(w, "%.0f\t%.2f\t%.2f\t%.2f\t\n", row[0], row[1], row[2], row[3])
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nmetrics:")
	vals := metrics.Collect(tr, metrics.Default()...)
	for _, name := range sortedKeys(vals) {
		fmt.Printf("  %s: %.6f\n", name, vals[name])
	}
	return nil
}

func compareScenarios(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	cmp, err := exp.Compare(cmd.Context(), exp.Params())
	if err != nil {
		return err
	}
	b, a := cmp.Summaries()

	fmt.Printf("segments: %s\n\n", joinSegments(cmp.Segments))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tBEFORE\tAFTER")
	fmt.Fprintf(w, "reproduction number\t%.2f\t%.2f\n", cmp.Params.BasicReproduction(), cmp.Params.EffectiveReproduction())
	fmt.Fprintf(w, "peak infected\t%.2f\t%.2f\n", b.PeakInfected, a.PeakInfected)
	fmt.Fprintf(w, "peak day\t%d\t%d\n", b.PeakStep, a.PeakStep)
	fmt.Fprintf(w, "immunized\t%.2f\t%.2f\n", b.Immunized, a.Immunized)
	fmt.Fprintf(w, "total infected\t%.2f\t%.2f\n", b.TotalInfected, a.TotalInfected)
	fmt.Fprintf(w, "attack rate\t%.4f\t%.4f\n", b.AttackRate, a.AttackRate)
	fmt.Fprintf(w, "final recovered\t%.2f\t%.2f\n", b.FinalR, a.FinalR)
	return w.Flush()
}

func plotScenario(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return plotCases(exp)
	}
	cmp, err := exp.Compare(cmd.Context(), exp.Params())
	if err != nil {
		return err
	}
	if plotCompare {
		fmt.Println(viz.RenderComparison(cmp.Before, cmp.After, plotWidth, plotHeight))
		return nil
	}
	fmt.Println(viz.RenderCompartments(cmp.After, plotWidth, plotHeight))
	return nil
}

func plotCases(exp *experiment.Experiment) error {
	ts := exp.Cases()
	if ts == nil {
		return fmt.Errorf("no case series: pass --cases or set cases_file")
	}
	fmt.Println(viz.RenderCases(ts, plotWidth, plotHeight))

	declining, err := ts.Declining(plotWindow)
	if err != nil {
		log.Printf("case trend: %v", err)
		return nil
	}
	answer := "no"
	if declining {
		answer = "yes"
	}
	fmt.Printf("\nAre new cases declining? %s (last %d days vs the %d before)\n", answer, plotWindow, plotWindow)
	return nil
}

func exportScenario(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	cmp, err := exp.Compare(cmd.Context(), exp.Params())
	if err != nil {
		return err
	}
	title := "SIR model: before vs after vaccination"
	if err := export.ToFile(args[0], title, cmp.Scenario(exp.Config().Integrator), cmp.Series()...); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", args[0])
	return nil
}

func listClusters(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	t := exp.Table()
	if t == nil {
		return fmt.Errorf("no case table: pass --data or set data_file")
	}

	if toSQLite != "" {
		if err := casedata.SaveSQLite(cmd.Context(), toSQLite, t); err != nil {
			return err
		}
		log.Printf("wrote %d rows to %s", t.Len(), toSQLite)
	}

	if d, ok := t.LatestDate(); ok {
		fmt.Printf("last updated: %s\n\n", d.Format("January 02, 2006"))
	}

	if cluster != "" {
		return showCluster(t, epi.SegmentID(cluster))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CLUSTER\tCOUNTIES\tACTIVE\tDEATHS\tRECOVERED\tBI-WEEKLY AVG\t")
	for _, id := range append(t.Clusters(), "") {
		s, err := t.Summary(id)
		if err != nil {
			return err
		}
		label := string(id)
		if label == "" {
			label = "all"
		}
		fmt.Fprintf(w, "%s\t%d\t%.0f\t%.0f\t%.0f\t%.0f\t\n", label, s.Counties, s.Active, s.Deaths, s.Recovered, s.BiWeeklyAverage)
	}
	return w.Flush()
}

func showCluster(t *casedata.Table, id epi.SegmentID) error {
	s, err := t.Summary(id)
	if err != nil {
		return err
	}
	counties, err := t.TopCounties(id, top)
	if err != nil {
		return err
	}
	fmt.Printf("cluster %s: %d counties\n", id, s.Counties)
	fmt.Printf("  active cases:     %.0f\n", s.Active)
	fmt.Printf("  total deaths:     %.0f\n", s.Deaths)
	fmt.Printf("  total recovered:  %.0f\n", s.Recovered)
	fmt.Printf("  bi-weekly avg:    %.0f\n\n", s.BiWeeklyAverage)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNTY\tCONFIRMED")
	for _, c := range counties {
		fmt.Fprintf(w, "%s\t%.0f\n", c.County, c.Confirmed)
	}
	return w.Flush()
}

func sweep(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	obj, ok := optim.Objectives[objective]
	if !ok {
		return fmt.Errorf("unknown objective: %s", objective)
	}

	var (
		names  []string
		ranges [][]float64
	)
	for _, axis := range sweepAxes {
		name, values, found := strings.Cut(axis, "=")
		if !found {
			return fmt.Errorf("axis %q: want name=values", axis)
		}
		r, err := optim.ParseRange(values)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, r)
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	best, all, err := g.Search(cmd.Context(), exp, exp.Params(), obj)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "BETA\tGAMMA\tPROPORTION\tEFFICACY\tPEAK\tDAY\t"+strings.ToUpper(objective)+"\t")
	for _, pt := range all {
		p := pt.Params
		fmt.Fprintf(w, "%g\t%g\t%g\t%g\t%.2f\t%d\t%.4f\t\n", p.Beta, p.Gamma, p.Proportion, p.Efficacy,
			pt.Summary.PeakInfected, pt.Summary.PeakStep, pt.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: beta=%g gamma=%g proportion=%g efficacy=%g (%s %.4f)\n",
		best.Params.Beta, best.Params.Gamma, best.Params.Proportion, best.Params.Efficacy, objective, best.Value)

	if cmd.Flags().Changed("peak-limit") {
		candidates, err := optim.ParseRange("0:1:0.01")
		if err != nil {
			return err
		}
		p, ok, err := optim.MinimumProportion(cmd.Context(), exp, exp.Params(), peakLimit, candidates)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("least coverage keeping the peak under %g: %g\n", peakLimit, p)
		} else {
			fmt.Printf("no coverage keeps the peak under %g\n", peakLimit)
		}
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	return viz.Run(exp)
}

func serve(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd)
	if err != nil {
		return err
	}
	srv := newHTTPServer(addr, exp)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func joinSegments(ids []epi.SegmentID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ",")
}
