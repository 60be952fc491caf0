package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	seq      INTEGER NOT NULL UNIQUE,
	instance TEXT    NOT NULL PRIMARY KEY,
	entity   TEXT    NOT NULL,
	model    TEXT    NOT NULL,
	status   TEXT    NOT NULL CHECK (status IN ('ok', 'failed')),
	code     TEXT    NOT NULL DEFAULT '',
	error    TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_entity ON runs(entity);

CREATE TABLE IF NOT EXISTS outputs (
	seq      INTEGER NOT NULL UNIQUE,
	instance TEXT    NOT NULL REFERENCES runs(instance),
	port     TEXT    NOT NULL,
	digest   TEXT    NOT NULL,
	data     TEXT    NOT NULL,
	UNIQUE (instance, port)
);
`
