// Package cmdscan provides the batch scanning subcommand.
package cmdscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"
	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/bitmap"
	"github.com/rusq/docscan/cmd/docscan/internal/bootstrap"
	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/base"
	"github.com/rusq/docscan/overlay"
)

var CmdScan = &base.Command{
	Run:        runScan,
	UsageLine:  "docscan scan [flags] <image files...>",
	Short:      "scan image files",
	PrintFlags: true,
	Long: `
Scans the image files.  For each file "name.ext" the scan is written to
"name_scan.jpg" next to the source file, or in the -o directory.

With -overlay, the debug image "name_overlay.png" shows the detected document
edges: green if the image was cropped, red if the detected region was too
small to crop to.

With -merge, all scanned pages are stacked into a single JPEG file in the
order of the arguments.
`,
}

const (
	scanSuffix    = "_scan.jpg"
	overlaySuffix = "_overlay.png"
	mergeGap      = 20 // pixels between the merged pages
)

var (
	outputDir   string
	withOverlay bool
	overlayFont string
	jsonReport  bool
	mergeFile   string
)

func init() {
	CmdScan.Flag.StringVar(&outputDir, "o", "", "output `directory`, if not set, the scans are written next to the source files")
	CmdScan.Flag.BoolVar(&withOverlay, "overlay", false, "write the debug overlay image")
	CmdScan.Flag.StringVar(&overlayFont, "font", overlay.DefaultFont, "overlay font `name` or font file (.ttf, .otf, .fnt)")
	CmdScan.Flag.BoolVar(&jsonReport, "json", false, "print the JSON report to STDOUT")
	CmdScan.Flag.StringVar(&mergeFile, "merge", "", "merge all scanned pages into a single JPEG `file`")
}

// result is the scan result of a single file.
type result struct {
	File    string        `json:"file"`
	Output  string        `json:"output,omitempty"`
	Overlay string        `json:"overlay,omitempty"`
	Page    *docscan.Page `json:"page,omitempty"`
	Error   string        `json:"error,omitempty"`

	err error
	img *image.RGBA // kept for merging
}

type scanner struct {
	sc     *docscan.Scanner
	outDir string
	face   font.Face // nil if overlay is disabled
	keep   bool      // keep the images for merging
}

func runScan(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) == 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("no files to scan")
	}
	sc, err := bootstrap.Scanner()
	if err != nil {
		return err
	}
	s := &scanner{sc: sc, outDir: outputDir, keep: mergeFile != ""}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			base.SetExitStatus(base.SApplicationError)
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if withOverlay {
		face, err := overlay.LoadFace(overlayFont, 12, 72)
		if err != nil {
			base.SetExitStatus(base.SInvalidParameters)
			return fmt.Errorf("failed to load overlay font: %w", err)
		}
		s.face = face
	}

	results, err := s.scanAll(ctx, args, !jsonReport)
	if err != nil {
		base.SetExitStatus(base.SCancelled)
		return err
	}
	if s.keep {
		if err := merge(sc, mergeFile, results); err != nil {
			base.SetExitStatus(base.SApplicationError)
			return err
		}
	}

	if jsonReport {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printReport(results)
	}
	return failures(results)
}

// scanAll scans the files concurrently with at most cfg.Workers at a time.
// The results are in the order of files.
func (s *scanner) scanAll(ctx context.Context, files []string, progress bool) ([]result, error) {
	var (
		results = make([]result, len(files))
		done    atomic.Int64
		mu      sync.Mutex // guards pb
		pb      *pterm.ProgressbarPrinter
	)
	if progress {
		var err error
		pb, err = pterm.DefaultProgressbar.WithTotal(len(files)).WithTitle("Scanning").Start()
		if err != nil {
			cfg.Log.WarnContext(ctx, "failed to start the progress bar", "error", err)
			pb = nil
		}
	}
	cfg.RegisterSigInfoReporter(func(w io.Writer) {
		fmt.Fprintf(w, "scanned %d of %d files\n", done.Load(), len(files))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.scanFile(name)
			done.Add(1)
			if pb != nil {
				mu.Lock()
				pb.UpdateTitle(filepath.Base(name))
				pb.Increment()
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if pb != nil {
		_, _ = pb.Stop()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanFile scans a single file and writes the outputs.
func (s *scanner) scanFile(name string) result {
	res := result{File: name}
	lg := cfg.Log.With("file", name)
	fail := func(err error) result {
		lg.Debug("scan failed", "error", err)
		res.err = err
		res.Error = err.Error()
		return res
	}

	f, err := os.Open(name)
	if err != nil {
		return fail(err)
	}
	img, err := s.sc.Decode(f)
	f.Close()
	if err != nil {
		return fail(err)
	}
	out, pg, err := s.sc.Process(img)
	if err != nil {
		return fail(err)
	}
	res.Page = pg

	outName := s.outputName(name, scanSuffix)
	if err := writeFile(outName, func(w io.Writer) error { return s.sc.Encode(w, out) }); err != nil {
		return fail(err)
	}
	res.Output = outName

	if s.face != nil {
		resized, _ := bitmap.ResizeToBound(img, cfg.MaxWidth, cfg.MaxHeight)
		ov := overlay.Annotate(resized, pg, overlay.WithFace(s.face))
		ovName := s.outputName(name, overlaySuffix)
		if err := writeFile(ovName, func(w io.Writer) error { return png.Encode(w, ov) }); err != nil {
			return fail(err)
		}
		res.Overlay = ovName
	}
	if s.keep {
		res.img = out
	}
	lg.Debug("scanned", "output", outName, "cropped", pg.Cropped)
	return res
}

// outputName returns the output file name for the source file name.
func (s *scanner) outputName(name, suffix string) string {
	dir := s.outDir
	if dir == "" {
		dir = filepath.Dir(name)
	}
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return filepath.Join(dir, stem+suffix)
}

func writeFile(name string, fn func(w io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	return f.Close()
}

// merge stacks the successfully scanned pages and writes them to filename.
func merge(sc *docscan.Scanner, filename string, results []result) error {
	var width int
	for _, r := range results {
		if r.img != nil {
			width = max(width, r.img.Bounds().Dx())
		}
	}
	if width == 0 {
		return errors.New("nothing to merge")
	}
	c := bitmap.NewComposer(width, bitmap.WithComposerGap(mergeGap))
	var pages int
	for _, r := range results {
		if r.img != nil {
			c.AppendImage(r.img)
			pages++
		}
	}
	if err := writeFile(filename, func(w io.Writer) error { return sc.Encode(w, c.Image()) }); err != nil {
		return fmt.Errorf("failed to write merged file: %w", err)
	}
	pterm.Info.Printfln("merged %d pages into %s", pages, filename)
	return nil
}

func printReport(results []result) {
	for _, r := range results {
		if r.err != nil {
			pterm.Error.Printfln("%s: %s", r.File, r.Error)
			continue
		}
		pg := r.Page
		msg := fmt.Sprintf("%s -> %s (%dx%d", r.File, r.Output, pg.Bounds.Dx(), pg.Bounds.Dy())
		if pg.Cropped {
			msg += ", cropped"
		}
		msg += ")"
		if pg.Blank {
			pterm.Warning.Printfln("%s: page looks blank", msg)
		} else {
			pterm.Success.Println(msg)
		}
	}
}

// failures returns an error if any of the files failed, and sets the exit
// status.
func failures(results []result) error {
	var failed, decode int
	for _, r := range results {
		if r.err != nil {
			failed++
			if docscan.IsDecodeError(r.err) {
				decode++
			}
		}
	}
	if failed == 0 {
		return nil
	}
	if decode == failed {
		base.SetExitStatus(base.SDecodeError)
	} else {
		base.SetExitStatus(base.SApplicationError)
	}
	return fmt.Errorf("%d of %d files failed", failed, len(results))
}
