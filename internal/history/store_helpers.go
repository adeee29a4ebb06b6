package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		taskName    sql.NullString
		outputPath  sql.NullString
		statusStr   string
		errMessage  sql.NullString
		errKind     sql.NullString
		plannedMs   int64
		realizedMs  int64
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&taskName,
		&run.VideoPath,
		&run.OriginalSRT,
		&run.TargetSRT,
		&outputPath,
		&run.Strategy,
		&run.Mode,
		&statusStr,
		&errMessage,
		&errKind,
		&run.CueCount,
		&run.Matched,
		&run.Unmatched,
		&run.OpCount,
		&plannedMs,
		&realizedMs,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run.TaskName = taskName.String
	run.OutputPath = outputPath.String
	run.Status = Status(statusStr)
	run.Error = errMessage.String
	run.ErrorKind = errKind.String
	run.Planned = time.Duration(plannedMs) * time.Millisecond
	run.Realized = time.Duration(realizedMs) * time.Millisecond
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// stripWildcards drops LIKE wildcards from a user-supplied prefix.
func stripWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
