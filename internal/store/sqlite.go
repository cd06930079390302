package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Single connection serializes writers.
	db.SetMaxOpenConns(1)

	// Create events table
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`); err != nil {
		db.Close()
		return nil, err
	}

	// Create requests table mirroring the audit log
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS requests(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		req_id TEXT,
		transport TEXT,
		request_json TEXT,
		response_json TEXT,
		label TEXT,
		latency_ms INTEGER
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) Event(level, code, msg string, meta map[string]interface{}) error {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, err := db.Exec(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		float64(time.Now().UnixNano())/1e9, level, code, msg, m)
	return err
}

func (db *DB) Req(start time.Time, reqID, transport, requestJSON, responseJSON, label string, latencyMs int64) error {
	_, err := db.Exec(`INSERT INTO requests(
		ts, req_id, transport, request_json, response_json, label, latency_ms)
		VALUES(?,?,?,?,?,?,?)`,
		float64(start.UnixNano())/1e9, reqID, transport, requestJSON, responseJSON, label, latencyMs)
	return err
}
