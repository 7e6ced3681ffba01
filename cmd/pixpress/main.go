package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"pixpress/internal/compressor"
	"pixpress/internal/config"
	"pixpress/internal/handlestore"
	"pixpress/internal/logger"
	"pixpress/internal/metadata"
	"pixpress/internal/scanner"
	"pixpress/internal/session"
	"pixpress/internal/statistics"
	"pixpress/internal/web"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	quiet      bool
	port       int
	quality    float64
	formatName string
	scale      int
	outDir     string
)

// rootCmd starts the interactive web interface.
var rootCmd = &cobra.Command{
	Use:   "pixpress",
	Short: "Interactive image compression studio for local directories",
	Long: `pixpress serves a local web interface for browsing the images in a
directory and compressing them interactively.

Features:
- Pick a directory and browse its image files (jpg, jpeg, png, webp, gif)
- Adjust quality, output format and scale with a live before/after preview
- Side-by-side and slider comparison views
- Remembers the last directory across sessions
- Download the original or the compressed rendition`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// scanCmd lists the image files in a directory without starting the UI.
var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "List the image files pixpress would show for a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args[0])
	},
}

// compressCmd batch-compresses every image in a directory headlessly.
var compressCmd = &cobra.Command{
	Use:   "compress <directory>",
	Short: "Compress all images in a directory without the web interface",
	Long: `Compresses every image file in the given directory using the same
engine as the interactive UI and writes the results next to the originals
(or into --out). Output names follow the interactive download pattern.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().IntVar(&port, "port", 0, "port to run the web server on (overrides config)")

	compressCmd.Flags().Float64Var(&quality, "quality", 0.8, "quality factor for lossy formats (0.1-1.0)")
	compressCmd.Flags().StringVar(&formatName, "format", "webp", "output format (webp, jpeg, png)")
	compressCmd.Flags().IntVar(&scale, "scale", 100, "output scale percent (10-100)")
	compressCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: <directory>/compressed)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(compressCmd)
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v, falling back to defaults\n", err)
		cfg = config.DefaultConfig()
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log := setupLogger(cfg)
	stats := statistics.New()
	engine := compressor.NewEngine()
	sc := scanner.New(cfg.Images.Extensions, log)
	store := handlestore.New(cfg.StorePath(), log)
	meta := metadata.NewExtractor(log)

	ctrl := session.NewController(
		engine, sc, store, stats,
		compressor.Params{
			Quality:      cfg.Compression.Quality,
			Format:       compressor.Format(cfg.Compression.Format),
			ScalePercent: cfg.Compression.ScalePercent,
		},
		time.Duration(cfg.Server.DebounceMS)*time.Millisecond,
		log,
	)
	defer ctrl.Close()

	server := web.NewServer(cfg, log, ctrl, meta, stats)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	if !quiet {
		color.Green("pixpress is running")
		color.Cyan("Open your browser at http://localhost:%d", cfg.Server.Port)
		color.Yellow("Press Ctrl+C to stop")
	}

	<-sigChan
	if !quiet {
		fmt.Println("\nShutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if !quiet {
		fmt.Println(stats.GetSummary())
	}
	return nil
}

// runScan lists image files the scanner finds in the given directory.
func runScan(dir string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	log := setupLogger(cfg)

	if handlestore.Probe(dir) != handlestore.PermissionGranted {
		return fmt.Errorf("directory is not readable: %s", dir)
	}

	files, err := scanner.New(cfg.Images.Extensions, log).Scan(dir)
	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Println(f.Name)
	}
	if !quiet {
		color.Green("%d image file(s) in %s", len(files), dir)
	}
	return nil
}

// runCompress batch-compresses a directory with a bounded worker pool.
func runCompress(dir string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	log := setupLogger(cfg)
	stats := statistics.New()

	format, err := compressor.ParseFormat(formatName)
	if err != nil {
		return err
	}
	params := compressor.Params{
		Quality:      quality,
		Format:       format,
		ScalePercent: scale,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if handlestore.Probe(dir) != handlestore.PermissionGranted {
		return fmt.Errorf("directory is not readable: %s", dir)
	}

	files, err := scanner.New(cfg.Images.Extensions, log).Scan(dir)
	if err != nil {
		return err
	}
	stats.IncrementDirectoriesScanned()
	stats.AddFilesListed(int64(len(files)))
	if len(files) == 0 {
		color.Yellow("No image files in %s", dir)
		return nil
	}

	target := outDir
	if target == "" {
		target = filepath.Join(dir, "compressed")
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	engine := compressor.NewEngine()
	numWorkers := runtime.NumCPU()
	if numWorkers < 2 {
		numWorkers = 2
	}

	jobs := make(chan scanner.FileEntry, len(files))
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for entry := range jobs {
				compressOne(entry, params, target, engine, stats, log)
			}
		}()
	}
	for _, entry := range files {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
		if stats.GetErrorCount() > 0 {
			fmt.Println(stats.GetErrorSummary())
		}
	}
	return nil
}

// compressOne compresses a single file and writes the result.
func compressOne(entry scanner.FileEntry, params compressor.Params, target string, engine compressor.Engine, stats *statistics.Statistics, log *logrus.Logger) {
	src, err := os.ReadFile(entry.Path)
	if err != nil {
		stats.AddError(entry.Name, "read", err.Error())
		stats.IncrementCompressionsFailed()
		log.Warnf("Skipping %s: %v", entry.Name, err)
		return
	}

	result, err := engine.Compress(context.Background(), src, params)
	if err != nil {
		stats.AddError(entry.Name, "compress", err.Error())
		stats.IncrementCompressionsFailed()
		log.Warnf("Compression failed for %s: %v", entry.Name, err)
		return
	}

	outPath := filepath.Join(target, session.DownloadName(entry.Name, params))
	if err := os.WriteFile(outPath, result.Data, 0644); err != nil {
		stats.AddError(entry.Name, "write", err.Error())
		stats.IncrementCompressionsFailed()
		log.Warnf("Write failed for %s: %v", entry.Name, err)
		return
	}

	stats.IncrementCompressionsDone()
	stats.AddBytesIn(int64(len(src)))
	stats.AddBytesOut(int64(len(result.Data)))
	if !quiet {
		fmt.Printf("%s -> %s (%dx%d, %s -> %s)\n",
			entry.Name, filepath.Base(outPath), result.Width, result.Height,
			statistics.FormatBytes(int64(len(src))),
			statistics.FormatBytes(int64(len(result.Data))))
	}
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.New(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
