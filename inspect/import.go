package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tocview/archive"
	"tocview/index"
	"tocview/state"
)

// Import loads YAML fixtures into SQLite metadata index.
func Import(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("import")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input fixture has been specified")
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = env.Cfg.Index.Path
	}
	if len(dst) == 0 {
		return errors.New("no destination database has been specified")
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := env.Rpt.StoreCopy(filepath.Join("fixtures", filepath.Base(src)), src); err != nil {
		log.Warn("Unable to store fixture in report", zap.Error(err))
	}

	log.Info("Import starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Import completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	n, err := importFixtures(ctx, src, dst, log)
	if err != nil {
		return err
	}
	log.Info("Documents imported", zap.Int("count", n))
	return nil
}

// importFixtures stores all documents found in src into database dst. Source
// is a single YAML fixture, a directory or a zip archive with fixtures.
func importFixtures(ctx context.Context, src, dst string, log *zap.Logger) (n int, err error) {
	docs, err := loadFixtures(ctx, src, log)
	if err != nil {
		return 0, err
	}

	db, err := index.OpenSQLite(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		if er := db.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close database: %w", er))
		}
	}()

	if err := db.Add(ctx, docs...); err != nil {
		return 0, fmt.Errorf("unable to store documents: %w", err)
	}
	return len(docs), nil
}

func loadFixtures(ctx context.Context, src string, log *zap.Logger) ([]index.Document, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("input source was not found: %w", err)
	}

	var docs []index.Document
	collect := func(name string, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := index.LoadYAML(r)
		if err != nil {
			return err
		}
		log.Debug("Fixture loaded", zap.String("fixture", name), zap.Int("documents", len(d)))
		docs = append(docs, d...)
		return nil
	}

	if fi.IsDir() {
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !archive.IsFixture(path) {
				return nil
			}
			return loadFile(path, collect)
		})
		if err != nil {
			return nil, fmt.Errorf("unable to process directory: %w", err)
		}
		return docs, nil
	}

	zipped, err := isArchiveFile(src)
	if err != nil {
		return nil, fmt.Errorf("unable to check archive type: %w", err)
	}
	if zipped {
		if err := archive.Walk(src, "", collect); err != nil {
			return nil, fmt.Errorf("unable to process archive: %w", err)
		}
		return docs, nil
	}
	if err := loadFile(src, collect); err != nil {
		return nil, err
	}
	return docs, nil
}

func loadFile(path string, fn archive.FixtureFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open fixture: %w", err)
	}
	defer f.Close()
	return fn(path, f)
}

func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// 262 bytes is enough for filetype to detect any supported signature
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}
