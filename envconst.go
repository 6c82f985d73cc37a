package marquise

import (
	"os"
	"path/filepath"

	"github.com/anchor/marquise/internal/envx"
	"github.com/anchor/marquise/internal/errorsx"
)

// Environment variables honored by the client and the transmission daemon.
const (
	EnvSpoolDirectory = "MARQUISE_SPOOL_DIR"           // base directory for spool files.
	EnvIngestHost     = "MARQUISE_INGEST_HOST"         // endpoint of the remote time series store.
	EnvSegmentBytes   = "MARQUISE_SPOOL_SEGMENT_BYTES" // segment rotation threshold in bytes.
)

// Transmission agent tunables. retry parameters are deliberately exposed
// rather than hidden constants.
const (
	EnvAgentOrphanGrace    = "MARQUISE_AGENT_ORPHAN_GRACE"    // age before an unlocked open segment is sealed. time.Duration.
	EnvAgentBackoffScale   = "MARQUISE_AGENT_BACKOFF_SCALE"   // initial retry delay. time.Duration.
	EnvAgentBackoffMaximum = "MARQUISE_AGENT_BACKOFF_MAXIMUM" // retry delay cap. time.Duration.
	EnvAgentBackoffJitter  = "MARQUISE_AGENT_BACKOFF_JITTER"  // retry delay jitter ratio. float.
	EnvAgentBatchRecords   = "MARQUISE_AGENT_BATCH_RECORDS"   // maximum records per transmitted batch.
	EnvAgentBatchBytes     = "MARQUISE_AGENT_BATCH_BYTES"     // maximum payload bytes per transmitted batch.
)

var ingestHostDefault = "http://localhost:5580"

// DefaultSpoolDirectory resolves the base directory spool files live under.
func DefaultSpoolDirectory() string {
	fallback := filepath.Join(errorsx.Zero(os.UserCacheDir()), "marquise", "spool")
	return envx.String(fallback, EnvSpoolDirectory)
}

// EnvIngestHostDefault resolves the remote store endpoint.
func EnvIngestHostDefault() string {
	return envx.String(ingestHostDefault, EnvIngestHost)
}

// DefaultSegmentBytes resolves the segment rotation threshold.
func DefaultSegmentBytes(fallback int64) int64 {
	return envx.Int64(fallback, EnvSegmentBytes)
}
