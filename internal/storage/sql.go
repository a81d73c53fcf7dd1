package storage

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    directory  TEXT      NOT NULL
);

CREATE TABLE IF NOT EXISTS clips
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER   NOT NULL REFERENCES sessions (id),
    token      TEXT      NOT NULL,
    start_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clip_files
(
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    clip_id INTEGER NOT NULL REFERENCES clips (id),
    role    TEXT    NOT NULL,
    path    TEXT    NOT NULL,
    records INTEGER NOT NULL DEFAULT 0,
    bytes   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_clips_session ON clips (session_id);
CREATE INDEX IF NOT EXISTS idx_clip_files_clip ON clip_files (clip_id);
`

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time, directory)
VALUES (CURRENT_TIMESTAMP, ?)`

	insertClipSQL = `
INSERT INTO clips (session_id, token, start_time)
VALUES (?, ?, CURRENT_TIMESTAMP)`

	insertClipFileSQL = `
INSERT INTO clip_files (clip_id, role, path, records, bytes)
VALUES (?, ?, ?, ?, ?)`

	selectClipsSQL = `
SELECT
    id,
    session_id,
    token,
    start_time
FROM clips
WHERE
    session_id = ?
ORDER BY start_time`

	selectClipFilesSQL = `
SELECT
    id,
    clip_id,
    role,
    path,
    records,
    bytes
FROM clip_files
WHERE
    clip_id = ?
ORDER BY id`
)
