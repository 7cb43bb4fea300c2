// Package store persists notifications.
//
// Error Contract:
//   - FindByID and MarkRead return sentinel.ErrNotFound when no record exists
//   - MarkRead on an already-read record returns it unchanged
//   - List methods return an empty slice, never ErrNotFound
package store
