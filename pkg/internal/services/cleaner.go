package services

import (
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"github.com/rs/zerolog/log"
)

// LedgerCleaner drops route records older than the retention window.
type LedgerCleaner struct {
	ledger    ledger.Ledger
	retention time.Duration
}

func NewLedgerCleaner(ledger ledger.Ledger, retention time.Duration) *LedgerCleaner {
	return &LedgerCleaner{ledger: ledger, retention: retention}
}

func (v *LedgerCleaner) DoAutoLedgerCleanup() {
	if v.retention <= 0 {
		return
	}

	deadline := time.Now().Add(-v.retention)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up route ledger...")

	count, err := v.ledger.Prune(deadline)
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when running ledger cleanup...")
		return
	}

	log.Debug().Int64("affected", count).Msg("Clean up route ledger accomplished.")
}
