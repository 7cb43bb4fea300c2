// Package store persists declarations and their status history.
//
// Error Contract:
//   - FindByID and FindForUpdate return sentinel.ErrNotFound for unknown IDs
//   - Create returns sentinel.ErrConflict when the duplicate key is taken
//   - LinkCertificate returns sentinel.ErrAlreadyUsed when a certificate is already linked
package store
