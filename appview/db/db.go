package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so store functions compose inside or outside a transaction.
type Execer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func Make(dbPath string) (*DB, error) {
	// _txlock=immediate makes every transaction take the write lock up
	// front, so the reaction toggle's read-modify-write cannot deadlock
	// on a lock upgrade under concurrent writers.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		pragma journal_mode = WAL;
		pragma synchronous = normal;
		pragma temp_store = memory;
		pragma busy_timeout = 5000;

		create table if not exists capsules (
			id text primary key,
			title text not null,
			description text not null default '',
			owner_id text not null,
			owner_email text not null,
			owner_name text not null default '',
			unlock_kind text not null default 'date',
			unlock_at text,
			status text not null default 'locked',
			privacy text not null default 'recipients-only',
			theme text not null default 'Other',
			created text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			unlocked_at text
		);
		create index if not exists idx_capsules_due on capsules (status, unlock_at);

		create table if not exists recipients (
			capsule_id text not null,
			email text not null,
			unique (capsule_id, email),
			foreign key (capsule_id) references capsules(id) on delete cascade
		);

		create table if not exists collaborators (
			capsule_id text not null,
			user_id text not null,
			email text not null,
			added text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			unique (capsule_id, user_id),
			foreign key (capsule_id) references capsules(id) on delete cascade
		);

		create table if not exists media (
			id text primary key,
			capsule_id text not null,
			uploader_id text not null,
			url text not null,
			kind text not null,
			name text not null default '',
			file_key text not null default '',
			created text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			foreign key (capsule_id) references capsules(id) on delete cascade
		);

		create table if not exists comments (
			id text primary key,
			capsule_id text not null,
			user_id text not null,
			user_name text not null default '',
			body text not null,
			created text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			foreign key (capsule_id) references capsules(id) on delete cascade
		);

		create table if not exists reactions (
			capsule_id text not null,
			user_id text not null,
			emoji text not null,
			created text not null default (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			primary key (capsule_id, user_id),
			foreign key (capsule_id) references capsules(id) on delete cascade
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

type filter struct {
	key string
	cmp string
	arg []any
}

func newFilter(key, cmp string, args ...any) filter {
	return filter{key: key, cmp: cmp, arg: args}
}

func FilterEq(key string, arg any) filter  { return newFilter(key, "=", arg) }
func FilterGte(key string, arg any) filter { return newFilter(key, ">=", arg) }
func FilterLte(key string, arg any) filter { return newFilter(key, "<=", arg) }

func FilterIn(key string, args []string) filter {
	anys := make([]any, len(args))
	for i, a := range args {
		anys[i] = a
	}
	return filter{key: key, cmp: "in", arg: anys}
}

func (f filter) Condition() string {
	if f.cmp == "in" {
		if len(f.arg) == 0 {
			// always false
			return "1 = 0"
		}
		placeholders := strings.Repeat("?, ", len(f.arg))
		return fmt.Sprintf("%s in (%s)", f.key, strings.TrimSuffix(placeholders, ", "))
	}
	return fmt.Sprintf("%s %s ?", f.key, f.cmp)
}

func (f filter) Arg() []any {
	if f.cmp == "in" && len(f.arg) == 0 {
		return nil
	}
	return f.arg
}

func whereClause(filters []filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var conditions []string
	var args []any
	for _, f := range filters {
		conditions = append(conditions, f.Condition())
		args = append(args, f.Arg()...)
	}
	return " where " + strings.Join(conditions, " and "), args
}
