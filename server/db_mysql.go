package server

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/BurntSushi/migration"
	// imported without _ since we need mysql.MySQLError
	"github.com/go-sql-driver/mysql"

	"github.com/depotd/depot/registry"
)

// mysqlStore implements registry.MetadataStore on a MySQL database.
type mysqlStore struct {
	db *sql.DB
}

var _ registry.MetadataStore = &mysqlStore{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysqlStore connects to a MySQL database, migrating the schema if
// needed, and returns a metadata store backed by it.
func NewMysqlStore(dial string) (registry.MetadataStore, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open MySQL: %s", err.Error())
		return nil, err
	}
	return &mysqlStore{db: db}, nil
}

func (ms *mysqlStore) Exists(id string) (bool, error) {
	const query = `SELECT 1 FROM packages WHERE id = ? LIMIT 1`

	var one int
	err := ms.db.QueryRow(query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Insert adds the package row, the metadata row, and the origin row, in
// that order, inside one transaction. The primary key on packages turns a
// concurrent duplicate publish into a conflict error here, even when both
// requests passed the Exists check.
func (ms *mysqlStore) Insert(p registry.Package, jsProgram string, origin registry.Origin) error {
	tx, err := ms.db.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO packages (id, name, version, created) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Version, time.Now())
	if err == nil {
		_, err = tx.Exec(
			`INSERT INTO package_metadata (package_id, name, version, js_program) VALUES (?, ?, ?, ?)`,
			p.ID, p.Name, p.Version, jsProgram)
	}
	if err == nil {
		_, err = tx.Exec(
			`INSERT INTO package_origins (package_id, content_inline, url, debloat) VALUES (?, ?, ?, ?)`,
			p.ID, origin.ContentInline, origin.URL, origin.Debloat)
	}
	if err != nil {
		_ = tx.Rollback()
		if merr, ok := err.(*mysql.MySQLError); ok && merr.Number == 1062 {
			return registry.NewError(registry.KindConflict, "package %s already exists", p.ID)
		}
		return err
	}
	return tx.Commit()
}

func (ms *mysqlStore) Lookup(id string) (*registry.PackageInfo, error) {
	const query = `
		SELECT p.id, p.name, p.version, m.js_program,
			o.content_inline, o.url, o.debloat
		FROM packages p
		JOIN package_metadata m ON m.package_id = p.id
		JOIN package_origins o ON o.package_id = p.id
		WHERE p.id = ?
		LIMIT 1`

	var info registry.PackageInfo
	err := ms.db.QueryRow(query, id).Scan(
		&info.ID, &info.Name, &info.Version, &info.JSProgram,
		&info.Origin.ContentInline, &info.Origin.URL, &info.Origin.Debloat)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (ms *mysqlStore) Search(filters []registry.Filter, offset, limit int) ([]registry.Package, error) {
	query := `SELECT id, name, version FROM packages`
	var args []interface{}
	if len(filters) > 0 {
		var ors []string
		for _, f := range filters {
			var conds []string
			if f.Name != "" {
				conds = append(conds, `name = ?`)
				args = append(args, f.Name)
			}
			if f.ID != "" {
				conds = append(conds, `id = ?`)
				args = append(args, f.ID)
			}
			if f.Version != nil {
				switch f.Version.Kind {
				case registry.MatchExact:
					conds = append(conds, `version = ?`)
					args = append(args, f.Version.Exact)
				case registry.MatchRange:
					// lexical string comparison, on purpose
					conds = append(conds, `(version >= ? AND version <= ?)`)
					args = append(args, f.Version.Low, f.Version.High)
				case registry.MatchCaret, registry.MatchTilde:
					conds = append(conds, `version LIKE ?`)
					args = append(args, likePrefix(f.Version.Prefix()))
				}
			}
			if len(conds) == 0 {
				conds = append(conds, `1=1`)
			}
			ors = append(ors, "("+strings.Join(conds, " AND ")+")")
		}
		query += ` WHERE ` + strings.Join(ors, " OR ")
	}
	query += ` ORDER BY name, version, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := ms.db.Query(query, args...)
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

// likePrefix turns a literal version prefix into a LIKE pattern, escaping
// the LIKE metacharacters.
func likePrefix(prefix string) string {
	prefix = strings.Replace(prefix, `\`, `\\`, -1)
	prefix = strings.Replace(prefix, `%`, `\%`, -1)
	prefix = strings.Replace(prefix, `_`, `\_`, -1)
	return prefix + "%"
}

// Reset drops every table, ratings included, and recreates the schema.
func (ms *mysqlStore) Reset() error {
	stmts := append([]string{
		`DROP TABLE IF EXISTS packages`,
		`DROP TABLE IF EXISTS package_metadata`,
		`DROP TABLE IF EXISTS package_origins`,
		`DROP TABLE IF EXISTS package_ratings`,
	}, mysqlSchema...)
	for _, s := range stmts {
		if _, err := ms.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (ms *mysqlStore) Close() error {
	return ms.db.Close()
}

// database migrations. each one is a go function. Add them to the list
// mysqlMigrations at the top of this file for them to be run.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS packages (
		id varchar(64) NOT NULL,
		name varchar(255) NOT NULL,
		version varchar(64) NOT NULL,
		created datetime,
		PRIMARY KEY (id))`,

	`CREATE TABLE IF NOT EXISTS package_metadata (
		package_id varchar(64) NOT NULL,
		name varchar(255),
		version varchar(64),
		js_program longtext,
		PRIMARY KEY (package_id))`,

	`CREATE TABLE IF NOT EXISTS package_origins (
		package_id varchar(64) NOT NULL,
		content_inline boolean,
		url text,
		debloat boolean,
		PRIMARY KEY (package_id))`,

	`CREATE TABLE IF NOT EXISTS package_ratings (
		package_id varchar(64) NOT NULL,
		value longtext,
		created datetime,
		PRIMARY KEY (package_id))`,

	`CREATE INDEX packages_name ON packages (name)`,
}

func mysqlschema1(tx migration.LimitedTx) error {
	return execlist(tx, mysqlSchema)
}
