package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store"
)

func (s *Store) CreatePost(ctx context.Context, post *model.Post, likes, comments string) error {
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO posts (id, title, content, short_description, thumbnail, tags, user_id, author, likes, comments, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, post.ID, post.Title, string(post.Content), nullIfEmpty(post.ShortDescription),
		nullIfEmpty(post.Thumbnail), string(tags), nullIfEmpty(post.UserID),
		nullIfEmpty(post.Author), likes, comments, post.CreatedAt.Unix())
	return err
}

const postColumns = `id, title, content, short_description, thumbnail, tags, user_id, author, likes, comments, created_at`

func (s *Store) GetPostRow(ctx context.Context, id string) (model.Post, store.ContentRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

func (s *Store) ListPostRows(ctx context.Context) ([]model.Post, []store.ContentRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	raws := []store.ContentRow{}
	for rows.Next() {
		post, raw, err := scanPost(rows)
		if err != nil {
			return nil, nil, err
		}
		posts = append(posts, post)
		raws = append(raws, raw)
	}
	return posts, raws, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE posts
SET title = ?, content = ?, short_description = ?, thumbnail = ?, tags = ?
WHERE id = ?
`, post.Title, string(post.Content), nullIfEmpty(post.ShortDescription),
		nullIfEmpty(post.Thumbnail), string(tags), post.ID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePostLikes(ctx context.Context, id, likes string) error {
	return s.updateColumn(ctx, "posts", "likes", id, likes)
}

func (s *Store) UpdatePostComments(ctx context.Context, id, comments string) error {
	return s.updateColumn(ctx, "posts", "comments", id, comments)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "posts", id)
}

// ListTags returns the distinct tags across all posts, preserving each tag's
// stored casing and first-seen order over newest posts first.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	out := []string{}
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if raw.String == "" {
			continue
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
			continue
		}
		for _, tag := range tags {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out, rows.Err()
}

func (s *Store) CreateVideo(ctx context.Context, video *model.Video, likes, comments string) error {
	var meta any
	if len(video.Metadata) > 0 {
		meta = string(video.Metadata)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO videos (id, name, description, url, user_id, likes, comments, created_at, source, original_metadata)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, video.ID, video.Name, nullIfEmpty(video.Description), video.URL,
		nullIfEmpty(video.UserID), likes, comments, video.CreatedAt.Unix(),
		nullIfEmpty(video.Source), meta)
	return err
}

const videoColumns = `id, name, description, url, user_id, likes, comments, created_at, source, original_metadata`

func (s *Store) GetVideoRow(ctx context.Context, id string) (model.Video, store.ContentRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

func (s *Store) ListVideoRows(ctx context.Context) ([]model.Video, []store.ContentRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	videos := []model.Video{}
	raws := []store.ContentRow{}
	for rows.Next() {
		video, raw, err := scanVideo(rows)
		if err != nil {
			return nil, nil, err
		}
		videos = append(videos, video)
		raws = append(raws, raw)
	}
	return videos, raws, rows.Err()
}

func (s *Store) UpdateVideoLikes(ctx context.Context, id, likes string) error {
	return s.updateColumn(ctx, "videos", "likes", id, likes)
}

func (s *Store) UpdateVideoComments(ctx context.Context, id, comments string) error {
	return s.updateColumn(ctx, "videos", "comments", id, comments)
}

func (s *Store) DeleteVideo(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "videos", id)
}

func (s *Store) CreatePicture(ctx context.Context, pic *model.Picture, likes, comments string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pics (id, title, url, user_id, likes, comments, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, pic.ID, pic.Title, pic.URL, nullIfEmpty(pic.UserID), likes, comments, pic.CreatedAt.Unix())
	return err
}

const picColumns = `id, title, url, user_id, likes, comments, created_at`

func (s *Store) GetPictureRow(ctx context.Context, id string) (model.Picture, store.ContentRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+picColumns+` FROM pics WHERE id = ?`, id)
	return scanPicture(row)
}

func (s *Store) ListPictureRows(ctx context.Context) ([]model.Picture, []store.ContentRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+picColumns+` FROM pics ORDER BY created_at DESC`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	pics := []model.Picture{}
	raws := []store.ContentRow{}
	for rows.Next() {
		pic, raw, err := scanPicture(rows)
		if err != nil {
			return nil, nil, err
		}
		pics = append(pics, pic)
		raws = append(raws, raw)
	}
	return pics, raws, rows.Err()
}

func (s *Store) UpdatePictureLikes(ctx context.Context, id, likes string) error {
	return s.updateColumn(ctx, "pics", "likes", id, likes)
}

func (s *Store) UpdatePictureComments(ctx context.Context, id, comments string) error {
	return s.updateColumn(ctx, "pics", "comments", id, comments)
}

func (s *Store) DeletePicture(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "pics", id)
}

func (s *Store) ListAnime(ctx context.Context) ([]model.AnimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, url, img, ord FROM anime ORDER BY ord ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.AnimeEntry{}
	for rows.Next() {
		var e model.AnimeEntry
		var url, img sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &url, &img, &e.Ord); err != nil {
			return nil, err
		}
		e.URL = url.String
		e.Img = img.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ReplaceAnime(ctx context.Context, entries []model.AnimeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM anime`); err != nil {
		return err
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO anime (id, title, url, img, ord) VALUES (?, ?, ?, ?, ?)
`, e.ID, e.Title, nullIfEmpty(e.URL), nullIfEmpty(e.Img), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) PatchAnime(ctx context.Context, id string, title, url, img *string, ord *int) (model.AnimeEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AnimeEntry{}, err
	}
	defer tx.Rollback()

	var e model.AnimeEntry
	var curURL, curImg sql.NullString
	row := tx.QueryRowContext(ctx, `SELECT id, title, url, img, ord FROM anime WHERE id = ?`, id)
	if err := row.Scan(&e.ID, &e.Title, &curURL, &curImg, &e.Ord); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AnimeEntry{}, store.ErrNotFound
		}
		return model.AnimeEntry{}, err
	}
	e.URL = curURL.String
	e.Img = curImg.String

	if title != nil {
		e.Title = *title
	}
	if url != nil {
		e.URL = *url
	}
	if img != nil {
		e.Img = *img
	}
	if ord != nil {
		e.Ord = *ord
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE anime SET title = ?, url = ?, img = ?, ord = ? WHERE id = ?
`, e.Title, nullIfEmpty(e.URL), nullIfEmpty(e.Img), e.Ord, id); err != nil {
		return model.AnimeEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.AnimeEntry{}, err
	}
	return e, nil
}

func (s *Store) DeleteAnime(ctx context.Context, id string) error {
	return s.deleteRow(ctx, "anime", id)
}

// updateColumn writes a single engagement column. table and column are
// always literals from the callers above, never request input.
func (s *Store) updateColumn(ctx context.Context, table, column, id, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) deleteRow(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (model.Post, store.ContentRow, error) {
	var p model.Post
	var raw store.ContentRow
	var contentCol, shortDesc, thumbnail, tagsRaw, userID, author, likes, comments sql.NullString
	var created int64
	if err := row.Scan(&p.ID, &p.Title, &contentCol, &shortDesc, &thumbnail, &tagsRaw,
		&userID, &author, &likes, &comments, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ContentRow{}, store.ErrNotFound
		}
		return model.Post{}, store.ContentRow{}, err
	}
	if contentCol.String != "" {
		p.Content = json.RawMessage(contentCol.String)
	}
	p.ShortDescription = shortDesc.String
	p.Thumbnail = thumbnail.String
	p.Tags = []string{}
	if tagsRaw.String != "" {
		_ = json.Unmarshal([]byte(tagsRaw.String), &p.Tags)
	}
	p.UserID = userID.String
	p.Author = author.String
	p.CreatedAt = time.Unix(created, 0)
	raw.Likes = likes.String
	raw.Comments = comments.String
	return p, raw, nil
}

func scanVideo(row scanner) (model.Video, store.ContentRow, error) {
	var v model.Video
	var raw store.ContentRow
	var description, userID, likes, comments, source, meta sql.NullString
	var created int64
	if err := row.Scan(&v.ID, &v.Name, &description, &v.URL, &userID,
		&likes, &comments, &created, &source, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Video{}, store.ContentRow{}, store.ErrNotFound
		}
		return model.Video{}, store.ContentRow{}, err
	}
	v.Description = description.String
	v.UserID = userID.String
	v.Source = source.String
	if meta.String != "" {
		v.Metadata = json.RawMessage(meta.String)
	}
	v.CreatedAt = time.Unix(created, 0)
	raw.Likes = likes.String
	raw.Comments = comments.String
	return v, raw, nil
}

func scanPicture(row scanner) (model.Picture, store.ContentRow, error) {
	var p model.Picture
	var raw store.ContentRow
	var userID, likes, comments sql.NullString
	var created int64
	if err := row.Scan(&p.ID, &p.Title, &p.URL, &userID, &likes, &comments, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Picture{}, store.ContentRow{}, store.ErrNotFound
		}
		return model.Picture{}, store.ContentRow{}, err
	}
	p.UserID = userID.String
	p.CreatedAt = time.Unix(created, 0)
	raw.Likes = likes.String
	raw.Comments = comments.String
	return p, raw, nil
}
