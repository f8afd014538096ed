package galaxy

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// ReleaseRow is one flat row of the release query: one row per
// release x executable x title-piece combination. Repeated release keys are
// expected; the grouper folds them.
type ReleaseRow struct {
	ReleaseKey      string
	Title           string
	ExecutablePath  *string
	ExecutableLabel *string
	Rating          *float64
	ReleaseDateRaw  *string
}

// TagRow is one tag membership row: one row per tag x release combination,
// ordered by tag then ascending release date.
type TagRow struct {
	Tag            string
	ReleaseKey     string
	Title          string
	ReleaseDateRaw *string
}

// QueryOptions narrow the release query.
type QueryOptions struct {
	// TitleSearch keeps only rows whose title contains the substring
	// (case-insensitive, SQLite LIKE semantics).
	TitleSearch string
	// Limit caps the number of rows returned; zero means unlimited.
	Limit int
}

const releaseRowsQuery = `
SELECT
    titles.releaseKey,
    json_extract(titles.value, '$.title') AS title,
    params.executablePath,
    params.label,
    props.rating,
    json_extract(meta.value, '$.releaseDate') AS releaseDate
FROM GamePieces titles
JOIN GamePieceTypes titleType
    ON titleType.id = titles.gamePieceTypeId
   AND titleType.type IN ('title', 'originalTitle')
LEFT JOIN GamePieces meta
    ON meta.releaseKey = titles.releaseKey
   AND meta.gamePieceTypeId = (SELECT id FROM GamePieceTypes WHERE type = 'meta')
LEFT JOIN PlayTasks tasks
    ON tasks.gameReleaseKey = titles.releaseKey
LEFT JOIN PlayTaskLaunchParameters params
    ON params.playTaskId = tasks.id
LEFT JOIN UserReleaseProperties props
    ON props.releaseKey = titles.releaseKey
WHERE json_extract(titles.value, '$.title') IS NOT NULL`

const tagRowsQuery = `
SELECT
    tags.tag,
    tags.releaseKey,
    json_extract(titles.value, '$.title') AS title,
    json_extract(meta.value, '$.releaseDate') AS releaseDate
FROM UserReleaseTags tags
LEFT JOIN GamePieces titles
    ON titles.releaseKey = tags.releaseKey
   AND titles.gamePieceTypeId = (SELECT id FROM GamePieceTypes WHERE type = 'title')
LEFT JOIN GamePieces meta
    ON meta.releaseKey = tags.releaseKey
   AND meta.gamePieceTypeId = (SELECT id FROM GamePieceTypes WHERE type = 'meta')
ORDER BY tags.tag COLLATE NOCASE ASC,
         CAST(json_extract(meta.value, '$.releaseDate') AS INTEGER) ASC`

// QueryReleaseRows returns the flat release rows, ordered by ascending
// release date so the import loop progresses deterministically.
func (s *Store) QueryReleaseRows(ctx context.Context, opts QueryOptions) ([]ReleaseRow, error) {
	query := releaseRowsQuery
	args := []any{}
	if search := strings.TrimSpace(opts.TitleSearch); search != "" {
		query += "\n  AND json_extract(titles.value, '$.title') LIKE ?"
		args = append(args, "%"+search+"%")
	}
	query += "\nORDER BY CAST(json_extract(meta.value, '$.releaseDate') AS INTEGER) ASC, titles.releaseKey ASC"
	if opts.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query release rows: %w", err)
	}
	defer rows.Close()

	var result []ReleaseRow
	for rows.Next() {
		var (
			releaseKey sql.NullString
			title      sql.NullString
			execPath   sql.NullString
			execLabel  sql.NullString
			rating     sql.NullFloat64
			dateRaw    sql.NullInt64
		)
		if err := rows.Scan(&releaseKey, &title, &execPath, &execLabel, &rating, &dateRaw); err != nil {
			return nil, fmt.Errorf("scan release row: %w", err)
		}
		if !releaseKey.Valid || releaseKey.String == "" {
			continue
		}
		row := ReleaseRow{
			ReleaseKey:      releaseKey.String,
			Title:           title.String,
			ExecutablePath:  nullableString(execPath),
			ExecutableLabel: nullableString(execLabel),
		}
		if rating.Valid {
			v := rating.Float64
			row.Rating = &v
		}
		if dateRaw.Valid {
			v := strconv.FormatInt(dateRaw.Int64, 10)
			row.ReleaseDateRaw = &v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate release rows: %w", err)
	}
	return result, nil
}

// QueryTagRows returns the tag membership rows grouped by tag, members in
// ascending release-date order so collections list games chronologically.
func (s *Store) QueryTagRows(ctx context.Context) ([]TagRow, error) {
	rows, err := s.db.QueryContext(ctx, tagRowsQuery)
	if err != nil {
		return nil, fmt.Errorf("query tag rows: %w", err)
	}
	defer rows.Close()

	var result []TagRow
	for rows.Next() {
		var (
			tag        sql.NullString
			releaseKey sql.NullString
			title      sql.NullString
			dateRaw    sql.NullInt64
		)
		if err := rows.Scan(&tag, &releaseKey, &title, &dateRaw); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		if !tag.Valid || tag.String == "" || !releaseKey.Valid || releaseKey.String == "" {
			continue
		}
		row := TagRow{
			Tag:        tag.String,
			ReleaseKey: releaseKey.String,
			Title:      title.String,
		}
		if dateRaw.Valid {
			v := strconv.FormatInt(dateRaw.Int64, 10)
			row.ReleaseDateRaw = &v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag rows: %w", err)
	}
	return result, nil
}
