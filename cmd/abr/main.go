package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bodgit/abr"
	"github.com/bodgit/abr/catalog"
	"github.com/bodgit/abr/thumbnail"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const defaultDB = "abr.db"

var greys = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCatalog(c *cli.Context) (*catalog.Catalog, *zap.Logger, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.New(c.String("db"), logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	return cat, logger, nil
}

// openLibrary opens a brush library, or a style library if the file has
// the ".asl" extension.
func openLibrary(file string) (*os.File, *abr.Brushes, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}

	var brushes *abr.Brushes
	if strings.EqualFold(filepath.Ext(file), ".asl") {
		brushes, err = abr.OpenASL(f)
	} else {
		brushes, err = abr.Open(f)
	}
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, brushes, nil
}

func encodeBrush(w io.Writer, b *abr.ImageBrush, format string) error {
	g := b.Image()
	switch format {
	case "png":
		return png.Encode(w, g)
	case "gif":
		// Sample values index the grey palette directly
		return gif.Encode(w, &image.Paletted{
			Pix:     g.Pix,
			Stride:  g.Stride,
			Rect:    g.Rect,
			Palette: greys,
		}, nil)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeFile(file string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(f)
}

// eachBrush calls fn for every brush in file, reporting and skipping any
// brush that cannot be decoded. The number of skipped brushes is
// returned.
func eachBrush(c *cli.Context, file string, fn func(int, *abr.ImageBrush) error) (int, error) {
	f, brushes, err := openLibrary(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var i, skipped int
	for brush, err := range brushes.All() {
		if err != nil {
			fmt.Fprintln(c.App.ErrWriter, err)
			skipped++
			continue
		}
		if err := fn(i, brush); err != nil {
			return skipped, err
		}
		i++
	}

	return skipped, nil
}

func outputName(dir, file string, i int, ext string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(dir, fmt.Sprintf("%s-%03d.%s", base, i, ext))
}

func list(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	file := c.Args().First()

	f, brushes, err := openLibrary(file)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	version, subversion := brushes.Version()
	fmt.Fprintf(c.App.Writer, "%s: %s version %d.%d\n", file, brushes.Format(), version, subversion)

	tw := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
	var i int
	for brush, err := range brushes.All() {
		if err != nil {
			var be *abr.BrushError
			if errors.As(err, &be) {
				fmt.Fprintf(tw, "%d\t\t%s\n", be.Index, be.Err)
			} else {
				fmt.Fprintf(tw, "\t\t%s\n", err)
			}
			continue
		}
		fmt.Fprintf(tw, "%d\t%dx%d\t%s\n", i, brush.Width, brush.Height, brush.Name)
		i++
	}

	return tw.Flush()
}

func export(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	format := strings.ToLower(c.String("format"))
	if format != "png" && format != "gif" {
		return cli.Exit(fmt.Sprintf("unknown format %q", format), 1)
	}

	file, dir := c.Args().Get(0), c.Args().Get(1)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}

	skipped, err := eachBrush(c, file, func(i int, b *abr.ImageBrush) error {
		if c.Bool("invert") {
			b.Invert()
		}
		return writeFile(outputName(dir, file, i, format), func(w io.Writer) error {
			return encodeBrush(w, b, format)
		})
	})
	if err != nil {
		return cli.Exit(err, 1)
	}
	if skipped > 0 {
		return cli.Exit(fmt.Sprintf("%d brushes skipped", skipped), 2)
	}

	return nil
}

func thumbnails(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	file, dir := c.Args().Get(0), c.Args().Get(1)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cli.Exit(err, 1)
	}

	skipped, err := eachBrush(c, file, func(i int, b *abr.ImageBrush) error {
		return writeFile(outputName(dir, file, i, "gif"), func(w io.Writer) error {
			return thumbnail.Encode(w, b.Image(), c.Int("size"), c.Int("colors"))
		})
	})
	if err != nil {
		return cli.Exit(err, 1)
	}
	if skipped > 0 {
		return cli.Exit(fmt.Sprintf("%d brushes skipped", skipped), 2)
	}

	return nil
}

func importLibraries(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cat, logger, err := newCatalog(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()
	defer cat.Close()

	for _, file := range c.Args().Slice() {
		result, err := cat.Import(file)
		if err != nil {
			return cli.Exit(err, 1)
		}
		logger.Info("imported", zap.String("file", file), zap.Int("brushes", result.Brushes))
	}

	return nil
}

func scan(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cat, logger, err := newCatalog(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()
	defer cat.Close()

	if _, err := cat.Scan(c.Context, c.Args().First(), c.Int("workers")); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func listCatalog(c *cli.Context) error {
	cat, logger, err := newCatalog(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		return cli.Exit(err, 1)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%dx%d\t%s\n", e.SHA1, e.Format, e.Position, e.Library, e.Width, e.Height, e.Name)
	}

	return tw.Flush()
}

func extract(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	cat, logger, err := newCatalog(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()
	defer cat.Close()

	sha, file := c.Args().Get(0), c.Args().Get(1)

	b, err := cat.Brush(sha)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if b == nil {
		return cli.Exit(fmt.Sprintf("no brush %s", sha), 1)
	}

	if c.Bool("invert") {
		b.Invert()
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	if err := writeFile(file, func(w io.Writer) error {
		return encodeBrush(w, b, format)
	}); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

// newApp returns the command line application with the catalog database
// defaulting to a file in dir.
func newApp(dir string) *cli.App {
	app := cli.NewApp()

	app.Name = "abr"
	app.Usage = "Brush and style library utility"
	app.Version = "1.0.0"

	invertFlag := &cli.BoolFlag{
		Name:  "invert",
		Usage: "invert samples so the brush is dark on light",
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"ABR_DB"},
			Value:   filepath.Join(dir, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "list",
			Usage:     "List the brushes in a library",
			ArgsUsage: "FILE",
			Action:    list,
		},
		{
			Name:      "export",
			Usage:     "Export each brush in a library as an image",
			ArgsUsage: "FILE DIRECTORY",
			Flags: []cli.Flag{
				invertFlag,
				&cli.StringFlag{
					Name:  "format",
					Value: "png",
					Usage: "image format, png or gif",
				},
			},
			Action: export,
		},
		{
			Name:      "thumbnail",
			Usage:     "Write a GIF thumbnail of each brush in a library",
			ArgsUsage: "FILE DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "size",
					Value: thumbnail.DefaultSize,
					Usage: "maximum width and height",
				},
				&cli.IntFlag{
					Name:  "colors",
					Value: thumbnail.DefaultColors,
					Usage: "maximum number of grey levels",
				},
			},
			Action: thumbnails,
		},
		{
			Name:      "import",
			Usage:     "Import libraries into the catalog",
			ArgsUsage: "FILE...",
			Action:    importLibraries,
		},
		{
			Name:      "scan",
			Usage:     "Import every library found under a directory into the catalog",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "workers",
					Value: catalog.DefaultWorkers,
					Usage: "number of files to import concurrently",
				},
			},
			Action: scan,
		},
		{
			Name:   "catalog",
			Usage:  "List the brushes in the catalog",
			Action: listCatalog,
		},
		{
			Name:      "extract",
			Usage:     "Write a brush from the catalog as a PNG or GIF image",
			ArgsUsage: "SHA1 FILE",
			Flags:     []cli.Flag{invertFlag},
			Action:    extract,
		},
	}

	return app
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := newApp(cwd).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
