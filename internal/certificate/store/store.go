// Package store persists certificates and their download ledger.
//
// Error Contract:
//   - FindByID, FindByDeclaration and FindDownload return sentinel.ErrNotFound when no record exists
//   - Create returns sentinel.ErrConflict when the declaration already has a certificate
//     or a registry number is reused
//   - AppendDownload returns sentinel.ErrConflict for a reused payment reference
//     and sentinel.ErrNotFound for an unknown certificate
//   - SettleDownload returns sentinel.ErrInvalidState when the entry is no longer pending
//   - ListDownloads returns an empty slice, never ErrNotFound
package store
