/*
Package catalog maintains a SQLite database of the brushes found in brush
and style library files.

Each imported file is recorded as a library and every brush decoded from
it is stored once, keyed by the SHA-1 of its geometry and samples, so the
same brush appearing in several libraries only takes space once. Samples
are stored compressed with zstd alongside a GIF thumbnail.
*/
package catalog

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/abr"
	"github.com/bodgit/abr/thumbnail"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrDatabase wraps any failure of the underlying database. Other errors
// returned by Import only concern the file being imported.
var ErrDatabase = errors.New("catalog: database error")

// Catalog is a brush database. It is safe for concurrent use.
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// Entry describes one brush within a library.
type Entry struct {
	Library  string
	Format   string
	Position int
	SHA1     string
	Name     string
	Width    int
	Height   int
}

// Result summarises a single Import.
type Result struct {
	// Brushes is the number of brushes stored
	Brushes int
	// Errors combines the errors of any brushes that could not be
	// decoded
	Errors error
}

func dbError(err error) error {
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}

// New opens the catalog stored in file, creating it if necessary.
func New(file string, logger *zap.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=10000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS library (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, sha1 TEXT NOT NULL, format TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS brush (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, name TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, depth INTEGER NOT NULL, data BLOB NOT NULL, thumbnail BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS member (library_id INTEGER NOT NULL, brush_id INTEGER NOT NULL, position INTEGER NOT NULL, UNIQUE(library_id, position), FOREIGN KEY(library_id) REFERENCES library(id), FOREIGN KEY(brush_id) REFERENCES brush(id))"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Catalog{
		db:     db,
		logger: logger,
		enc:    enc,
		dec:    dec,
	}, nil
}

// Close closes the catalog.
func (c *Catalog) Close() error {
	c.dec.Close()
	return multierr.Append(c.enc.Close(), c.db.Close())
}

// open picks the decoder from the file extension; style libraries use
// the ".asl" extension.
func open(r io.ReadSeeker, file string) (*abr.Brushes, error) {
	if strings.EqualFold(filepath.Ext(file), ".asl") {
		return abr.OpenASL(r)
	}
	return abr.Open(r)
}

func brushSHA1(b *abr.ImageBrush) string {
	h := sha1.New()
	h.Write(binary.BigEndian.AppendUint32(binary.BigEndian.AppendUint32(nil, b.Width), b.Height))
	h.Write(b.Data)
	return fmt.Sprintf("%X", h.Sum(nil))
}

// Import decodes every brush in file and adds it to the catalog,
// replacing anything previously imported from the same path. Brushes
// that fail to decode are logged and skipped; their errors are combined
// in the returned Result.
func (c *Catalog) Import(file string) (Result, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return Result{}, err
	}
	sha := fmt.Sprintf("%X", h.Sum(nil))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, err
	}

	brushes, err := open(f, path)
	if err != nil {
		return Result{}, err
	}

	library, err := c.addLibrary(path, sha, brushes.Format().String())
	if err != nil {
		return Result{}, err
	}

	var result Result
	for brush, err := range brushes.All() {
		if err != nil {
			c.logger.Warn("skipping brush", zap.String("file", path), zap.Error(err))
			result.Errors = multierr.Append(result.Errors, err)
			continue
		}

		id, err := c.addBrush(brush)
		if err != nil {
			return result, err
		}

		if err := c.addMember(library, id, result.Brushes); err != nil {
			return result, err
		}
		result.Brushes++
	}

	c.logger.Debug("imported library",
		zap.String("file", path),
		zap.String("format", brushes.Format().String()),
		zap.Int("brushes", result.Brushes),
		zap.Int("errors", len(multierr.Errors(result.Errors))))

	return result, nil
}

// addLibrary records the library at path, forgetting any brushes
// previously associated with it.
func (c *Catalog) addLibrary(path, sha, format string) (int64, error) {
	if _, err := c.db.Exec("INSERT INTO library (path, sha1, format) VALUES (?, ?, ?) ON CONFLICT(path) DO UPDATE SET sha1 = excluded.sha1, format = excluded.format", path, sha, format); err != nil {
		return 0, dbError(err)
	}

	var id int64
	if err := c.db.QueryRow("SELECT id FROM library WHERE path = ?", path).Scan(&id); err != nil {
		return 0, dbError(err)
	}

	if _, err := c.db.Exec("DELETE FROM member WHERE library_id = ?", id); err != nil {
		return 0, dbError(err)
	}

	return id, nil
}

func (c *Catalog) addBrush(b *abr.ImageBrush) (int64, error) {
	sha := brushSHA1(b)

	var id int64
	switch err := c.db.QueryRow("SELECT id FROM brush WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		thumb := new(bytes.Buffer)
		if err := thumbnail.Encode(thumb, b.Image(), thumbnail.DefaultSize, thumbnail.DefaultColors); err != nil {
			return 0, err
		}
		// Another import may have stored the same brush in the meantime
		if _, err := c.db.Exec("INSERT OR IGNORE INTO brush (sha1, name, width, height, depth, data, thumbnail) VALUES (?, ?, ?, ?, ?, ?, ?)", sha, b.Name, b.Width, b.Height, b.Depth, c.enc.EncodeAll(b.Data, nil), thumb.Bytes()); err != nil {
			return 0, dbError(err)
		}
		if err := c.db.QueryRow("SELECT id FROM brush WHERE sha1 = ?", sha).Scan(&id); err != nil {
			return 0, dbError(err)
		}
		return id, nil
	case nil:
		return id, nil
	default:
		return 0, dbError(err)
	}
}

func (c *Catalog) addMember(library, brush int64, position int) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO member (library_id, brush_id, position) VALUES (?, ?, ?)", library, brush, position); err != nil {
		return dbError(err)
	}
	return nil
}

// Brush returns the brush with the given SHA-1, or nil if there is no
// such brush.
func (c *Catalog) Brush(sha string) (*abr.ImageBrush, error) {
	var b abr.ImageBrush
	var data []byte
	switch err := c.db.QueryRow("SELECT name, width, height, depth, data FROM brush WHERE sha1 = ?", strings.ToUpper(sha)).Scan(&b.Name, &b.Width, &b.Height, &b.Depth, &data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		var err error
		if b.Data, err = c.dec.DecodeAll(data, nil); err != nil {
			return nil, err
		}
		if size := uint64(b.Width) * uint64(b.Height); uint64(len(b.Data)) != size {
			return nil, fmt.Errorf("catalog: brush %s has %d samples, expected %d", sha, len(b.Data), size)
		}
		return &b, nil
	default:
		return nil, dbError(err)
	}
}

// Thumbnail returns the GIF thumbnail of the brush with the given SHA-1,
// or nil if there is no such brush.
func (c *Catalog) Thumbnail(sha string) ([]byte, error) {
	var thumb []byte
	switch err := c.db.QueryRow("SELECT thumbnail FROM brush WHERE sha1 = ?", strings.ToUpper(sha)).Scan(&thumb); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return thumb, nil
	default:
		return nil, dbError(err)
	}
}

// List returns every brush in every library, ordered by library path and
// position.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT l.path, l.format, m.position, b.sha1, b.name, b.width, b.height FROM member AS m JOIN library AS l ON m.library_id = l.id JOIN brush AS b ON m.brush_id = b.id ORDER BY l.path, m.position")
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Library, &e.Format, &e.Position, &e.SHA1, &e.Name, &e.Width, &e.Height); err != nil {
			return nil, dbError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return entries, nil
}
