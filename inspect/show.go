// Package inspect implements program subcommands working with table of
// contents of records kept in metadata index.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	yaml "gopkg.in/yaml.v3"

	"tocview/config"
	"tocview/index"
	"tocview/state"
	"tocview/toc"
)

// Request describes what table of contents to show and how.
type Request struct {
	Record    string
	LogicalID string
	Page      int
	Siblings  bool
	ExpandAll bool
	Lang      language.Tag
	Format    config.OutputFmt
}

func Show(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("show")

	req := &Request{
		Record:    cmd.String("record"),
		LogicalID: cmd.String("current"),
		Page:      cmd.Int("page"),
		Siblings:  cmd.Bool("siblings"),
		ExpandAll: cmd.Bool("expand-all"),
	}
	if len(req.Record) == 0 {
		req.Record = cmd.Args().Get(0)
	}
	if len(req.Record) == 0 {
		return errors.New("no record identifier has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many records", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	if req.Format, err = config.ParseOutputFmt(cmd.String("format")); err != nil {
		log.Warn("Unknown output format requested, switching to text", zap.Error(err))
		req.Format = config.OutputFmtText
	}
	env.Format = req.Format

	if p := cmd.String("index"); len(p) > 0 {
		env.Cfg.Index.Path = p
	}
	if err := env.Connect(ctx); err != nil {
		return fmt.Errorf("unable to prepare metadata index: %w", err)
	}
	defer func() {
		if er := env.Disconnect(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close metadata index: %w", er))
		}
	}()

	req.Lang = env.Translator.Languages()[0]
	if l := cmd.String("lang"); len(l) > 0 {
		tag, er := language.Parse(l)
		if er != nil {
			log.Warn("Unknown language requested, using default", zap.String("lang", l), zap.Error(er))
		} else {
			req.Lang = tag
		}
	}

	log.Info("Processing starting", zap.String("record", req.Record), zap.Stringer("format", req.Format), zap.Stringer("lang", req.Lang))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return show(ctx, env, req, os.Stdout, log)
}

// show builds view of the requested record and writes it to w. Record absent
// from index is not an error.
func show(ctx context.Context, env *state.LocalEnv, req *Request, w io.Writer, log *zap.Logger) error {
	record, err := env.Index.Document(ctx, index.Where(index.FieldPI, req.Record), nil)
	if err != nil {
		return fmt.Errorf("unable to get record %s: %w", req.Record, err)
	}
	if record == nil {
		log.Warn("Record not found", zap.String("record", req.Record))
		_, err := fmt.Fprintln(w, "no table of contents")
		return err
	}

	view := newView(env, record, req, log)
	if err := view.Build(ctx); err != nil {
		return err
	}
	if req.ExpandAll {
		names, err := view.GroupNames(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := view.ExpandAll(ctx, name); err != nil {
				return err
			}
		}
	}

	var data []byte
	switch req.Format {
	case config.OutputFmtYAML:
		data, err = renderYAML(ctx, view, req)
	default:
		data, err = renderText(ctx, view, req)
	}
	if err != nil {
		return fmt.Errorf("unable to render table of contents of %s: %w", req.Record, err)
	}

	if env.Rpt != nil {
		name := path.Join("toc", config.CleanFileName(req.Record))
		env.Rpt.StoreData(name+req.Format.Ext(), data)
		if flat, err := view.Flat(ctx); err == nil {
			if err := env.Rpt.StoreYAML(name+"-flat.yaml", flat); err != nil {
				log.Warn("Unable to store entries in report", zap.Error(err))
			}
		}
	}

	_, err = w.Write(data)
	return err
}

// newView wires table of contents builder to collaborators of the environment.
func newView(env *state.LocalEnv, record index.Document, req *Request, log *zap.Logger) *toc.View {
	cfg := &env.Cfg.TOC
	labels := toc.NewLabelResolver(cfg.LabelTemplates, env.Translator)
	builder := toc.NewBuilder(env.Index, cfg, labels, env.Access, env.URLs, log)

	opts := toc.NewViewOptions(cfg)
	opts.Build = toc.BuildOptions{AllSiblings: req.Siblings, Page: req.Page}
	opts.Current = toc.Locator{TopRecordID: record.First(index.FieldPI), LogicalID: req.LogicalID}
	return toc.NewView(builder, record, opts, log)
}

func renderText(ctx context.Context, view *toc.View, req *Request) ([]byte, error) {
	empty, err := view.Empty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		return []byte("no table of contents\n"), nil
	}
	dump, err := view.Dump(ctx, req.Lang)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%s (%s)", req.Record, display.Self.Name(req.Lang))
	if view.Pages() > 1 {
		fmt.Fprintf(buf, " page %d of %d", view.Page(), view.Pages())
	}
	buf.WriteByte('\n')
	buf.WriteString(dump)
	return buf.Bytes(), nil
}

type groupDump struct {
	Name    string       `yaml:"name"`
	Entries []*toc.Entry `yaml:"entries"`
}

type viewDump struct {
	Record   string      `yaml:"record"`
	View     string      `yaml:"view"`
	Language string      `yaml:"language"`
	Page     int         `yaml:"page"`
	Pages    int         `yaml:"pages"`
	MaxDepth int         `yaml:"max_depth"`
	Groups   []groupDump `yaml:"groups"`
}

func renderYAML(ctx context.Context, view *toc.View, req *Request) ([]byte, error) {
	names, err := view.GroupNames(ctx)
	if err != nil {
		return nil, err
	}
	d := viewDump{
		Record:   req.Record,
		View:     view.ID(),
		Language: req.Lang.String(),
		Page:     view.Page(),
		Pages:    view.Pages(),
		MaxDepth: view.MaxDepth(),
	}
	for _, name := range names {
		t, err := view.Group(ctx, name)
		if err != nil {
			return nil, err
		}
		d.Groups = append(d.Groups, groupDump{Name: name, Entries: t.Entries()})
	}

	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
