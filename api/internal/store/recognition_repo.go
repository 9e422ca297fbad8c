package store

import (
	"context"
	"database/sql"
	"time"
)

var ErrNotFound = sql.ErrNoRows

// RecognitionRepo keeps one recognized string per (image_hash, engine, model).
type RecognitionRepo struct{ DB *sql.DB }

func NewRecognitionRepo(db *sql.DB) *RecognitionRepo { return &RecognitionRepo{DB: db} }

// Find возвращает сохранённый текст для (imageHash, engine, model).
// Если maxAge > 0 и запись старше, вернёт ErrNotFound.
func (r *RecognitionRepo) Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (string, error) {
	const q = `select text, created_at
	           from recognitions
	           where image_hash=$1 and engine=$2 and model=$3`
	var (
		text string
		ts   time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).Scan(&text, &ts); err != nil {
		return "", err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return "", ErrNotFound
	}
	return text, nil
}

// Save сохраняет/обновляет результат распознавания.
// PK: (image_hash, engine, model).
func (r *RecognitionRepo) Save(ctx context.Context, imageHash, engine, model, text string) error {
	const q = `
insert into recognitions(image_hash, engine, model, text)
values ($1,$2,$3,$4)
on conflict (image_hash, engine, model)
do update set text=excluded.text, created_at=now()`
	_, err := r.DB.ExecContext(ctx, q, imageHash, engine, model, text)
	return err
}
