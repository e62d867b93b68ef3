package repositories

import (
	"database/sql"
)

type MetaRepository struct {
	db DB
}

func NewMetaRepository(db DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// Get retrieves a metadata value; returns empty string when absent
func (r *MetaRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set inserts or replaces a metadata value
func (r *MetaRepository) Set(key, value string) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Delete removes a metadata value; deleting an absent key is a no-op
func (r *MetaRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM meta WHERE key = ?`, key)
	return err
}
