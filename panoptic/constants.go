package panoptic

const (
	// Collect triggers from the scheduler, the queue trigger and manual calls.
	TOPIC_COLLECT_TRIGGER = "topic.collect_trigger"
	// Run reports published after every triggered run.
	TOPIC_RUN_REPORT = "topic.run_report"

	DDOG_RUN_COUNTER            = "honeybee.panoptic.run"
	DDOG_RUN_DURATION           = "honeybee.panoptic.run_duration"
	DDOG_RUN_CORPUS_SIZE        = "honeybee.panoptic.corpus_size"
	DDOG_RUN_DUPLICATES         = "honeybee.panoptic.duplicates_removed"
	DDOG_SOURCE_OUTCOME_COUNTER = "honeybee.panoptic.source_outcome"
	DDOG_BROWSER_POOL_LIVE      = "honeybee.browser_pool.live"
	DDOG_BROWSER_POOL_IDLE      = "honeybee.browser_pool.idle"
	DDOG_BROWSER_POOL_RECYCLED  = "honeybee.browser_pool.recycled"
)

type CollectKind string

const (
	// Recollect everything and replace the cache.
	COLLECT_FRESH CollectKind = "fresh"
	// Recollect course listings and merge them into the cache.
	COLLECT_COURSES CollectKind = "courses"
)

type TriggerReason string

const (
	TRIGGER_DAILY  TriggerReason = "daily"
	TRIGGER_QUEUE  TriggerReason = "queue"
	TRIGGER_MANUAL TriggerReason = "manual"
)
