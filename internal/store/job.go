package store

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
)

func (s *Store) AddJob(job *model.ImportJob) (*model.ImportJob, error) {
	stmt := `
    INSERT INTO import_job (path, file_name, status, detail) VALUES (?, ?, ?, ?)
    RETURNING id, path, file_name, status, detail, created_ts
    `

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var j model.ImportJob
	if err := tx.QueryRow(stmt, job.Path, job.FileName, job.Status, job.Detail).Scan(
		&j.ID, &j.Path, &j.FileName, &j.Status, &j.Detail, &j.CreatedTs,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.JobCache.Store(j.ID, &j)
	return &j, nil
}

func (s *Store) UpdateJobStatus(jobID int, status, detail string) (*model.ImportJob, error) {
	stmt := `
    UPDATE import_job SET status = ?, detail = ? WHERE id = ?
    RETURNING id, path, file_name, status, detail, created_ts
    `

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var j model.ImportJob
	if err := tx.QueryRow(stmt, status, detail, jobID).Scan(
		&j.ID, &j.Path, &j.FileName, &j.Status, &j.Detail, &j.CreatedTs,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.JobCache.Store(j.ID, &j)
	return &j, nil
}

func (s *Store) GetJob(find *model.FindImportJob) (*model.ImportJob, error) {
	if find.ID != nil {
		if cache, ok := s.JobCache.Load(*find.ID); ok {
			return cache.(*model.ImportJob), nil
		}
	}

	list, err := s.ListJobs(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	job := list[0]
	s.JobCache.Store(job.ID, job)
	return job, nil
}

func (s *Store) ListJobs(find *model.FindImportJob) ([]*model.ImportJob, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = ?"), append(args, *v)
	}

	query := `
	    SELECT
	        id,
	        path,
	        file_name,
	        status,
	        detail,
	        created_ts
	    FROM import_job
	    WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query import jobs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.ImportJob, 0)
	for rows.Next() {
		var job model.ImportJob
		if err := rows.Scan(
			&job.ID,
			&job.Path,
			&job.FileName,
			&job.Status,
			&job.Detail,
			&job.CreatedTs,
		); err != nil {
			log.Error("Failed to scan import job", zap.Error(err))
			return nil, err
		}
		list = append(list, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
