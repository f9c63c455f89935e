package db

import (
	"time"
)

// RunStatus represents how a download run ended
type RunStatus string

const (
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
)

// Run is a record of one download run
type Run struct {
	ID            int64
	StoryID       string
	URL           string
	Title         string
	Site          string
	ChaptersTotal int
	Written       int
	Skipped       int
	Failed        int
	Status        RunStatus
	OutputDir     string
	CreatedAt     time.Time
}

// CreateRun records a finished download run
func CreateRun(r *Run) error {
	result, err := database.Exec(`
		INSERT INTO runs (
			story_id, url, title, site, chapters_total,
			written, skipped, failed, status, output_dir
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StoryID, r.URL, r.Title, r.Site, r.ChaptersTotal,
		r.Written, r.Skipped, r.Failed, r.Status, r.OutputDir,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first
func ListRuns(limit int) ([]*Run, error) {
	rows, err := database.Query(`
		SELECT id, story_id, url, title, site, chapters_total,
			written, skipped, failed, status, output_dir, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(
			&r.ID, &r.StoryID, &r.URL, &r.Title, &r.Site, &r.ChaptersTotal,
			&r.Written, &r.Skipped, &r.Failed, &r.Status, &r.OutputDir, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ClearRuns deletes all run history
func ClearRuns() error {
	_, err := database.Exec("DELETE FROM runs")
	return err
}
