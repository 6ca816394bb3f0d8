package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    table_name           TEXT NOT NULL,
    partition_key        TEXT NOT NULL,
    snapshot_id          TEXT NOT NULL,
    fetched_at           TEXT NOT NULL,
    row_count            INTEGER NOT NULL,
    columns_json         TEXT NOT NULL,
    rows_json            BLOB NOT NULL,
    PRIMARY KEY (table_name, partition_key)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(fetched_at);
`
