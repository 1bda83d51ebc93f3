// Package storage provides SQLite persistence for economic-calendar records.
//
// Records are partitioned by ingestion date. Each partition is a set of rows in the
// fixed-schema news_events table sharing one date value, and the news_meta table maps
// every date ever processed to its partition name (news_YYYY_MM_DD). Within a partition
// records are upserted on (time, currency, event): later fetches overwrite the actual,
// forecast and previous values in place. Each batch is applied in a single transaction.
package storage
