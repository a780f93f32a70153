package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
)

// Image is one accepted exam image belonging to a job, optionally
// associated with one of the job's questions.
type Image struct {
	ID             int64
	JobID          string
	QuestionID     *int64
	Path           string // addressable URL of the stored file
	Page           int
	BBox           *pdfdoc.Rect
	ContentHash    string
	PerceptualHash string
	CreatedAt      time.Time
}

// CreateImage inserts one image row.
func (s *Store) CreateImage(ctx context.Context, img *Image) (*Image, error) {
	img.CreatedAt = time.Now().UTC()

	var x0, y0, x1, y1 any
	if img.BBox != nil {
		x0, y0, x1, y1 = img.BBox.X0, img.BBox.Y0, img.BBox.X1, img.BBox.Y1
	}

	var questionID any
	if img.QuestionID != nil {
		questionID = *img.QuestionID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (job_id, question_id, path, page, bbox_x0, bbox_y0, bbox_x1, bbox_y1,
		                     content_hash, perceptual_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.JobID, questionID, img.Path, img.Page, x0, y0, x1, y1,
		img.ContentHash, img.PerceptualHash, img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create image: %w", err)
	}
	img.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read image id: %w", err)
	}
	return img, nil
}

// ImagesByJob returns a job's images ordered by page.
func (s *Store) ImagesByJob(ctx context.Context, jobID string) ([]*Image, error) {
	return s.images(ctx,
		`SELECT id, job_id, question_id, path, page, bbox_x0, bbox_y0, bbox_x1, bbox_y1,
		        content_hash, perceptual_hash, created_at
		 FROM images WHERE job_id = ? ORDER BY page, id`, jobID)
}

// ImagesByQuestion returns the images associated with one question.
func (s *Store) ImagesByQuestion(ctx context.Context, questionID int64) ([]*Image, error) {
	return s.images(ctx,
		`SELECT id, job_id, question_id, path, page, bbox_x0, bbox_y0, bbox_x1, bbox_y1,
		        content_hash, perceptual_hash, created_at
		 FROM images WHERE question_id = ? ORDER BY page, id`, questionID)
}

func (s *Store) images(ctx context.Context, query string, args ...any) ([]*Image, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func scanImage(row rowScanner) (*Image, error) {
	var img Image
	var questionID sql.NullInt64
	var x0, y0, x1, y1 sql.NullFloat64
	var contentHash, perceptualHash sql.NullString

	err := row.Scan(&img.ID, &img.JobID, &questionID, &img.Path, &img.Page,
		&x0, &y0, &x1, &y1, &contentHash, &perceptualHash, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	if questionID.Valid {
		img.QuestionID = &questionID.Int64
	}
	if x0.Valid && y0.Valid && x1.Valid && y1.Valid {
		img.BBox = &pdfdoc.Rect{X0: x0.Float64, Y0: y0.Float64, X1: x1.Float64, Y1: y1.Float64}
	}
	img.ContentHash = contentHash.String
	img.PerceptualHash = perceptualHash.String
	return &img, nil
}
