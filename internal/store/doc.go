// Package store provides durable client-side storage for zeeking using SQLite.
//
// # Overview
//
// The only state a zeeking client keeps across restarts is the
// authentication token pair. The store persists one pair per profile, where
// a profile is the API base URL the tokens were issued by, so pointing the
// client at a different backend never sends it foreign credentials.
//
// # Interfaces
//
//   - TokenStore: load, save and delete the token pair for a profile
//
// SQLiteStore implements TokenStore on disk. MockStore implements it in
// memory for tests.
//
// # Schema
//
//	CREATE TABLE session_tokens (
//	    profile       TEXT PRIMARY KEY,
//	    access_token  TEXT NOT NULL,
//	    refresh_token TEXT NOT NULL,
//	    updated_at    TEXT NOT NULL
//	);
//
// # Usage
//
//	s, err := store.NewSQLiteStore("~/.local/share/zeeking/zeeking.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	err = s.SaveTokens(ctx, profile, &store.Tokens{Access: a, Refresh: r})
//	tokens, err := s.LoadTokens(ctx, profile) // store.ErrNotFound when absent
package store
