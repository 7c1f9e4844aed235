package v1

import (
	"github.com/tinoosan/homeledger/internal/storage/memory"
	pgstore "github.com/tinoosan/homeledger/internal/storage/postgres"
)

// Compile-time assertions that both backends can report readiness.
var (
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*pgstore.Store)(nil)
)
