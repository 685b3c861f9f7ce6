package server

import (
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/cznic/ql/driver"

	"github.com/depotd/depot/registry"
)

var memCount int64

// qlStore implements registry.MetadataStore on the embedded QL database.
// It is intended for development and testing; production setups use MySQL.
type qlStore struct {
	db *sql.DB
}

var _ registry.MetadataStore = &qlStore{}

const qlSchema = `
	CREATE TABLE IF NOT EXISTS packages (
		id string,
		name string,
		version string,
		created time
	);
	CREATE UNIQUE INDEX IF NOT EXISTS packagesid ON packages (id);
	CREATE INDEX IF NOT EXISTS packagesname ON packages (name);

	CREATE TABLE IF NOT EXISTS package_metadata (
		package_id string,
		name string,
		version string,
		js_program string
	);
	CREATE INDEX IF NOT EXISTS metadataid ON package_metadata (package_id);

	CREATE TABLE IF NOT EXISTS package_origins (
		package_id string,
		content_inline bool,
		url string,
		debloat bool
	);
	CREATE INDEX IF NOT EXISTS originsid ON package_origins (package_id);

	CREATE TABLE IF NOT EXISTS package_ratings (
		package_id string,
		value string,
		created time
	);
`

// NewQlStore makes a metadata store saved in the given file. The special
// filename "memory" keeps everything in the server's memory, which is
// useful for testing.
func NewQlStore(filename string) (registry.MetadataStore, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		// the ql driver shares memory databases with the same name, so
		// each open gets a fresh one
		n := atomic.AddInt64(&memCount, 1)
		db, err = sql.Open("ql-mem", fmt.Sprintf("depot%d.db", n))
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlSchema)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil, err
	}
	return &qlStore{db: db}, nil
}

func (qs *qlStore) Exists(id string) (bool, error) {
	const query = `SELECT id FROM packages WHERE id == ?1 LIMIT 1`

	var found string
	err := qs.db.QueryRow(query, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Insert adds the three rows in order inside one transaction. QL serializes
// writers, so the in-transaction existence check is enough to keep the id
// unique even under concurrent publishes.
func (qs *qlStore) Insert(p registry.Package, jsProgram string, origin registry.Origin) error {
	tx, err := qs.db.Begin()
	if err != nil {
		return err
	}
	var found string
	err = tx.QueryRow(`SELECT id FROM packages WHERE id == ?1 LIMIT 1`, p.ID).Scan(&found)
	if err != sql.ErrNoRows {
		_ = tx.Rollback()
		if err == nil {
			return registry.NewError(registry.KindConflict, "package %s already exists", p.ID)
		}
		return err
	}
	_, err = tx.Exec(`INSERT INTO packages VALUES (?1, ?2, ?3, ?4)`,
		p.ID, p.Name, p.Version, time.Now())
	if err == nil {
		_, err = tx.Exec(`INSERT INTO package_metadata VALUES (?1, ?2, ?3, ?4)`,
			p.ID, p.Name, p.Version, jsProgram)
	}
	if err == nil {
		_, err = tx.Exec(`INSERT INTO package_origins VALUES (?1, ?2, ?3, ?4)`,
			p.ID, origin.ContentInline, origin.URL, origin.Debloat)
	}
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (qs *qlStore) Lookup(id string) (*registry.PackageInfo, error) {
	const pkgQuery = `SELECT id, name, version FROM packages WHERE id == ?1 LIMIT 1`
	const metaQuery = `SELECT js_program FROM package_metadata WHERE package_id == ?1 LIMIT 1`
	const originQuery = `SELECT content_inline, url, debloat FROM package_origins WHERE package_id == ?1 LIMIT 1`

	var info registry.PackageInfo
	err := qs.db.QueryRow(pkgQuery, id).Scan(&info.ID, &info.Name, &info.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	err = qs.db.QueryRow(metaQuery, id).Scan(&info.JSProgram)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	err = qs.db.QueryRow(originQuery, id).Scan(
		&info.Origin.ContentInline, &info.Origin.URL, &info.Origin.Debloat)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return &info, nil
}

func (qs *qlStore) Search(filters []registry.Filter, offset, limit int) ([]registry.Package, error) {
	query := `SELECT id, name, version FROM packages`
	var args []interface{}
	argn := 0
	nextArg := func(v interface{}) string {
		args = append(args, v)
		argn++
		return fmt.Sprintf("?%d", argn)
	}
	if len(filters) > 0 {
		var ors []string
		for _, f := range filters {
			var conds []string
			if f.Name != "" {
				conds = append(conds, `name == `+nextArg(f.Name))
			}
			if f.ID != "" {
				conds = append(conds, `id == `+nextArg(f.ID))
			}
			if f.Version != nil {
				switch f.Version.Kind {
				case registry.MatchExact:
					conds = append(conds, `version == `+nextArg(f.Version.Exact))
				case registry.MatchRange:
					// lexical string comparison, on purpose
					conds = append(conds,
						`(version >= `+nextArg(f.Version.Low)+
							` AND version <= `+nextArg(f.Version.High)+`)`)
				case registry.MatchCaret, registry.MatchTilde:
					// QL LIKE patterns are regular expressions
					conds = append(conds,
						`version LIKE `+nextArg("^"+regexp.QuoteMeta(f.Version.Prefix())))
				}
			}
			if len(conds) == 0 {
				conds = append(conds, `true`)
			}
			ors = append(ors, "("+strings.Join(conds, " AND ")+")")
		}
		query += ` WHERE ` + strings.Join(ors, " OR ")
	}
	query += fmt.Sprintf(` ORDER BY name, version, id LIMIT %d OFFSET %d`, limit, offset)

	rows, err := qs.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []registry.Package
	for rows.Next() {
		var p registry.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Version); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Reset drops every table, ratings included, and recreates the schema.
func (qs *qlStore) Reset() error {
	const drop = `
		DROP TABLE IF EXISTS packages;
		DROP TABLE IF EXISTS package_metadata;
		DROP TABLE IF EXISTS package_origins;
		DROP TABLE IF EXISTS package_ratings;
	`
	if _, err := performExec(qs.db, drop); err != nil {
		return err
	}
	_, err := performExec(qs.db, qlSchema)
	return err
}

func (qs *qlStore) Close() error {
	return qs.db.Close()
}

// performExec runs a statement inside the transaction QL requires for every
// mutation.
func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
