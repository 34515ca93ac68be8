package eventlog

const schema = `
CREATE TABLE IF NOT EXISTS events (
	offset INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	run_id TEXT NOT NULL,
	type TEXT NOT NULL,
	phase TEXT NOT NULL DEFAULT '',
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, offset);
`
