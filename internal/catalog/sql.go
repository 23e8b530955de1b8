package catalog

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS frames
(
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    platform    TEXT      NOT NULL,
    captured_at TIMESTAMP NOT NULL,
    filename    TEXT      NOT NULL UNIQUE,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_frames_captured_at ON frames (captured_at);`

	insertFrameSQL = `
INSERT OR IGNORE INTO frames (platform,
                              captured_at,
                              filename)
VALUES (?, ?, ?)`

	selectFramesSQL = `
SELECT
    id,
    platform,
    captured_at,
    filename,
    created_at
FROM frames
ORDER BY
    captured_at, filename`

	hasFrameSQL = `
SELECT
    COUNT(1)
FROM frames
WHERE
    filename = ?`
)
