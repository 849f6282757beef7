package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveArtifact сохраняет документ пропуска под ключом ref.
func (s *Storage) SaveArtifact(ctx context.Context, ref, contentType string, body []byte) error {
	const op = "storage.SaveArtifact"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO artifacts (ref, content_type, body) VALUES ($1, $2, $3)
		ON CONFLICT (ref) DO UPDATE SET content_type = EXCLUDED.content_type, body = EXCLUDED.body`,
		ref, contentType, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetArtifact возвращает документ пропуска; found=false, если его нет.
func (s *Storage) GetArtifact(ctx context.Context, ref string) (string, []byte, bool, error) {
	const op = "storage.GetArtifact"
	if err := checkCtx(ctx, op); err != nil {
		return "", nil, false, err
	}

	var (
		contentType string
		body        []byte
	)
	err := s.DB.QueryRowContext(ctx, `SELECT content_type, body FROM artifacts WHERE ref = $1`, ref).Scan(&contentType, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return contentType, body, true, nil
}
