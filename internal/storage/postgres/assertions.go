package postgres

import "github.com/tinoosan/homeledger/internal/storage"

var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*writer)(nil)
)
