package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "SWAP_PORT"
	EnvLogLevel        = "SWAP_LOG_LEVEL"
	EnvDataDir         = "SWAP_DATA_DIR"
	EnvShutdownTimeout = "SWAP_SHUTDOWN_TIMEOUT"
	EnvAPIToken        = "SWAP_API_TOKEN"

	// LINE notifications
	EnvLineChannelAccessToken = "SWAP_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLinePushRPS            = "SWAP_LINE_PUSH_RPS"

	// Matching
	EnvMatchCandidateLimit  = "SWAP_MATCH_CANDIDATE_LIMIT"
	EnvMatchStoreTimeout    = "SWAP_MATCH_STORE_TIMEOUT"
	EnvMatchNotifyTimeout   = "SWAP_MATCH_NOTIFY_TIMEOUT"
	EnvMatchWorkers         = "SWAP_MATCH_WORKERS"
	EnvMatchQueueSize       = "SWAP_MATCH_QUEUE_SIZE"
	EnvMatchSweepInterval   = "SWAP_MATCH_SWEEP_INTERVAL"
	EnvMatchSweepLimit      = "SWAP_MATCH_SWEEP_LIMIT"
	EnvPurgeMatchesOnDelete = "SWAP_PURGE_MATCHES_ON_DELETE"

	// Observability
	EnvBetterStackToken    = "SWAP_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "SWAP_BETTERSTACK_ENDPOINT"
	EnvSentryDSN           = "SWAP_SENTRY_DSN"
	EnvSentryEnvironment   = "SWAP_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate    = "SWAP_SENTRY_SAMPLE_RATE"
	EnvMetricsUsername     = "SWAP_METRICS_USERNAME"
	EnvMetricsPassword     = "SWAP_METRICS_PASSWORD"

	// R2 backups
	EnvR2Enabled         = "SWAP_R2_ENABLED"
	EnvR2AccountID       = "SWAP_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "SWAP_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "SWAP_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "SWAP_R2_BUCKET_NAME"
	EnvR2SnapshotKey     = "SWAP_R2_SNAPSHOT_KEY"
	EnvR2LockKey         = "SWAP_R2_LOCK_KEY"
	EnvR2LockTTL         = "SWAP_R2_LOCK_TTL"
	EnvBackupInterval    = "SWAP_BACKUP_INTERVAL"
)
