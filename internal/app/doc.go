// Package app wires the client runtime together.
//
// A Controller owns one of each component: the auth.Session, the HTTP
// client, the conversation Store and Exchange, the usage Tracker and the
// reset signal. Front ends call the Controller and never the components
// directly, so every error passes through one place.
//
// # Forced Logout
//
// Any call may fail with client.ErrAuthExpired. The Controller hands the
// credential generation from the error to Session.Expire, which succeeds
// once per rejected credential. Only that first caller clears the store,
// resets usage and calls Navigator.ToLogin. Every caller still gets the
// error back.
//
// # Background Work
//
// The Controller implements conversation.Background. Work started through
// it runs with the Controller's context and is joined by Close.
package app
