package configlibsql

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct configures a database that is either a local sqlite file or a
// remote libsql server.
type Struct struct {
	// File is a local sqlite path, `:memory:` is allowed.
	File string `json:"file"`
	// Url is a libsql://, http:// or https:// url, it takes precedence
	// over File.
	Url       string `json:"url" env:"MYCAR_DB_URL,overwrite"`
	AuthToken string `json:"auth_token" env:"MYCAR_DB_AUTH_TOKEN,overwrite"`
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		return openRemote(config.Url, config.AuthToken)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	return OpenSqlite(config.File)
}

func openRemote(link, authToken string) (*sql.DB, error) {
	if !strings.HasPrefix(link, "libsql://") &&
		!strings.HasPrefix(link, "http://") &&
		!strings.HasPrefix(link, "https://") {
		return nil, fmt.Errorf("unsupported database url '%s'", link)
	}
	if authToken != "" {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		link = fmt.Sprintf("%s%sauthToken=%s", link, sep, authToken)
	}
	return sql.Open("libsql", link)
}

// OpenSqlite opens (creating if needed) a local sqlite database.
func OpenSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}
