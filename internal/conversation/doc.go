// Package conversation holds the conversation state machine of the client.
//
// # Overview
//
// The Store owns the list of saved conversations, the active conversation
// and the pending input text. The active conversation is either a draft
// (no ID) or bound to a server ID:
//
//	draft --first reply with chat_id--> bound
//	any   --NewDraft / reset / delete active--> draft
//	any   --Select(id)--> bound(id)
//
// A bound conversation's ID never changes, and messages are only ever
// appended.
//
// # Exchange
//
// Exchange.Send runs one round trip:
//
//  1. reject empty text or a second concurrent send
//  2. append the user message, clear the input
//  3. POST advise/ with is_first_message and chat_id (null for a draft)
//  4. append the reply (or an error bubble), merge usage figures and,
//     for a draft, bind the returned chat_id and refresh the list in the
//     background
//  5. clear the in-flight flag
//
// Each replacement of the active conversation starts a new epoch. A reply
// that arrives after the user moved on is dropped; its usage figures are
// still merged since they describe the account, not the conversation.
//
// # Reset Signal
//
// ResetSignal is a typed fan-out channel. Any component may Publish a
// NewDraftRequest; Store.ListenForResets turns each one into NewDraft.
// Delivery is asynchronous, so the owner of a store uses PublishNewDraft,
// which applies the draft locally before notifying everyone else.
//
//	sig := conversation.NewResetSignal(logger)
//	go store.ListenForResets(ctx, sig)
//	store.PublishNewDraft(sig, "topbar")
//
// A Select whose history arrives after the active conversation changed is
// not applied and returns ErrSuperseded. List refreshes share one request;
// Reload starts a new one for callers that just changed the list.
//
// # Errors
//
// List, load and delete failures return *OpError and leave the store as it
// was. Errors matching client.ErrAuthExpired pass through unchanged so the
// owner can force a logout.
package conversation
