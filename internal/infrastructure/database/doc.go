// Package database provides SQLite connectivity and schema migrations for pmdesk.
//
// The connection runs with foreign keys on, WAL journaling and a busy
// timeout, and the pool is capped at one connection because SQLite has a
// single writer. Callers holding a transaction must issue every statement
// through that transaction or they will block on the pool.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_name.up.sql with an
// optional matching .down.sql. They are read from any fs.FS, normally the
// embedded migrations package:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
package database
