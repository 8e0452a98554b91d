// Package snapshots exports segment Live Sets to S3-compatible object storage.
//
// Each export writes one object per segment and point in time:
//
//	{prefix}{segment_id}/{yyyymmddThhmmss.nnnnnnnnnZ}.txt
//
// holding one member id per line. Batch consumers read the newest object instead of paging
// through the index. Older snapshots beyond the configured keep count are pruned after
// every export.
package snapshots
