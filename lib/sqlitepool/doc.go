// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the local state database shared by the name
// cache and the block list.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Every connection is
// initialised with WAL journaling, synchronous=NORMAL, and a busy
// timeout, then runs each registered schema script. Schemas use
// CREATE ... IF NOT EXISTS so they are safe to run on every connection.
//
// Callers either Take/Put connections directly or use [Pool.Read] and
// [Pool.Write], which borrow a connection for the duration of a
// callback; Write wraps it in an IMMEDIATE transaction that commits
// when the callback returns nil.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:    filepath.Join(stateDir, "areasearch.db"),
//	    Schemas: []string{namecache.Schema, blocklist.Schema},
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// Statements are written in SQL and run with sqlitex.Execute; there is
// no query builder.
package sqlitepool
