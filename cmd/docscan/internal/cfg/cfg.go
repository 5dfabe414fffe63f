// Package cfg contains common configuration variables.
package cfg

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/bitmap"
)

var (
	TraceFile   string = os.Getenv("TRACE_FILE")
	LogFile     string = os.Getenv("LOG_FILE")
	JSONHandler bool   = os.Getenv("JSON_LOG") != ""
	Verbose     bool   = os.Getenv("DEBUG") != ""

	MaxWidth   int     = osenv.Value("DOCSCAN_MAX_WIDTH", docscan.DefaultMaxWidth)
	MaxHeight  int     = osenv.Value("DOCSCAN_MAX_HEIGHT", docscan.DefaultMaxHeight)
	Quality    float64 = osenv.Value("DOCSCAN_QUALITY", docscan.DefaultQuality)
	Method     string  = osenv.Value("DOCSCAN_METHOD", bitmap.DefaultMethod)
	Enhance    bool    = osenv.Value("DOCSCAN_ENHANCE", false)
	Contrast   float64 = osenv.Value("DOCSCAN_CONTRAST", float64(docscan.DefaultContrast))
	Brightness float64 = osenv.Value("DOCSCAN_BRIGHTNESS", float64(docscan.DefaultBrightness))

	Workers  int    = osenv.Value("DOCSCAN_WORKERS", runtime.NumCPU())
	SpoolDir string = os.Getenv("DOCSCAN_SPOOL_DIR")

	Log *slog.Logger = slog.Default()
)

type FlagMask uint16

const (
	DefaultFlags  FlagMask = 0
	OmitScanFlags FlagMask = 1 << (iota - 1)
	OmitWorkerFlags

	OmitAll = OmitScanFlags | OmitWorkerFlags
)

// SetBaseFlags sets base flags.
func SetBaseFlags(fs *flag.FlagSet, mask FlagMask) {
	fs.StringVar(&TraceFile, "trace", TraceFile, "trace `filename`")
	fs.StringVar(&LogFile, "log", LogFile, "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&JSONHandler, "log-json", JSONHandler, "log in JSON format")
	fs.BoolVar(&Verbose, "v", Verbose, "verbose messages")

	if mask&OmitScanFlags == 0 {
		fs.IntVar(&MaxWidth, "max-width", MaxWidth, "maximum output `width`, larger images are scaled down")
		fs.IntVar(&MaxHeight, "max-height", MaxHeight, "maximum output `height`, larger images are scaled down")
		fs.Float64Var(&Quality, "q", Quality, "JPEG `quality` in range [0, 1]")
		fs.StringVar(&Method, "method", Method, fmt.Sprintf("binarization `method`, one of: %v", bitmap.AllMethods()))
		fs.BoolVar(&Enhance, "enhance", Enhance, "apply contrast and brightness adjustment before binarization")
		fs.Float64Var(&Contrast, "contrast", Contrast, "contrast adjustment in `percent`, used with -enhance")
		fs.Float64Var(&Brightness, "brightness", Brightness, "brightness adjustment in `percent`, used with -enhance")
	}
	if mask&OmitWorkerFlags == 0 {
		fs.IntVar(&Workers, "j", Workers, "number of concurrent `workers`")
	}
}

// SetDebugLevel sets the default logger level to debug.
func SetDebugLevel() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

// ScanOptions returns the scanner options from the configuration.
func ScanOptions() []docscan.Option {
	return []docscan.Option{
		docscan.WithMaxSize(MaxWidth, MaxHeight),
		docscan.WithQuality(Quality),
		docscan.WithMethod(Method),
		docscan.WithEnhance(Enhance),
		docscan.WithContrast(Contrast),
		docscan.WithBrightness(Brightness),
	}
}

// Validate checks the scan configuration values.
func Validate() error {
	if MaxWidth <= 0 || MaxHeight <= 0 {
		return fmt.Errorf("invalid maximum size: %dx%d", MaxWidth, MaxHeight)
	}
	if Quality < 0 || 1 < Quality {
		return fmt.Errorf("quality must be in range [0, 1], got %v", Quality)
	}
	if _, err := bitmap.Method(Method); err != nil {
		return fmt.Errorf("%w: %q", err, Method)
	}
	if Workers <= 0 {
		return fmt.Errorf("invalid number of workers: %d", Workers)
	}
	return nil
}
