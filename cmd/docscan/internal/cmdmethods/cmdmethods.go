// Package cmdmethods lists the binarization methods and overlay fonts.
package cmdmethods

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/rusq/docscan/bitmap"
	"github.com/rusq/docscan/cmd/docscan/internal/cfg"
	"github.com/rusq/docscan/cmd/docscan/internal/golang/base"
	"github.com/rusq/docscan/overlay"
)

var CmdMethods = &base.Command{
	Run:       runMethods,
	UsageLine: "docscan methods [-fonts]",
	Short:     "list binarization methods",
	FlagMask:  cfg.OmitAll,
	Long: `
Lists the available binarization methods, or, with -fonts, the fonts that
can be used for the debug overlay.
`,
}

var listFonts bool

func init() {
	CmdMethods.Flag.BoolVar(&listFonts, "fonts", false, "list overlay fonts instead")
}

func runMethods(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	data := methodTable()
	if listFonts {
		data = fontTable()
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}

func methodTable() pterm.TableData {
	data := pterm.TableData{{"Method", "Description"}}
	for _, name := range bitmap.AllMethods() {
		label := name
		if name == bitmap.DefaultMethod {
			label += " *"
		}
		data = append(data, []string{label, bitmap.MethodDescription(name)})
	}
	return data
}

func fontTable() pterm.TableData {
	data := pterm.TableData{{"Font", "Width", "Height"}}
	for _, f := range overlay.Fonts() {
		data = append(data, []string{f.Name, strconv.Itoa(f.Width), strconv.Itoa(f.Height)})
	}
	return data
}
