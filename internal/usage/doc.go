// Package usage tracks the account's token budget.
//
// The Tracker holds the last snapshot the server reported. It never
// computes decrements itself: Refresh replaces the snapshot from the stats
// endpoint, and Merge applies whichever fields a chat response carried.
//
//	tracker := usage.NewTracker(api, cfg.Chat.DailyLimit, logger)
//	if err := tracker.Refresh(ctx); err != nil { ... }
//	fmt.Println(tracker.Snapshot())  // Daily: 10/5000 · Total: 9990
package usage
