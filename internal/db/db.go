// Package db is the warehouse access layer: historical observations in,
// long-term forecast rows out.
package db

import "github.com/gocql/gocql"

type DB struct {
	Session *gocql.Session // air_quality keyspace
}

func New(sess *gocql.Session) *DB {
	return &DB{Session: sess}
}

func (db *DB) Close() {
	if db.Session != nil {
		db.Session.Close()
	}
}
