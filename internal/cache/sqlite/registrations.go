package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Registration records a completed partner registration so re-runs can skip
// the partner phase. Outcomes only, never tokens.
type Registration struct {
	Id        string `db:"id"`
	Region    string `db:"region"`
	Domain    string `db:"domain"`
	Outcome   string `db:"outcome"`
	CreatedAt int64  `db:"created_at"`
}

func CreateRegistrationsIfNotExists(path string) (*sqlx.DB, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS registrations (
		id 			TEXT NOT NULL,
		region 		TEXT NOT NULL,
		domain 		TEXT NOT NULL,
		outcome 	TEXT,
		created_at 	NUMBER,
		PRIMARY KEY (region, domain)
	);
	`
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %v", err)
	}
	db.MustExec(schema)
	return db, nil
}

func InsertRegistration(path string, region string, domain string, outcome string) error {
	db, err := CreateRegistrationsIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := Registration{
		Id:        uuid.NewString(),
		Region:    region,
		Domain:    domain,
		Outcome:   outcome,
		CreatedAt: time.Now().Unix(),
	}
	tx := db.MustBegin()
	sql := `INSERT OR REPLACE INTO registrations
	(
		id,
		region,
		domain,
		outcome,
		created_at
	)
	VALUES
	(
		:id,
		:region,
		:domain,
		:outcome,
		:created_at
	);`
	_, err = tx.NamedExec(sql, &reg)
	if err != nil {
		return fmt.Errorf("could not execute transaction: %v", err)
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("could not commit transaction: %v", err)
	}
	return nil
}

// GetRegistration returns nil without error when no record exists.
func GetRegistration(path string, region string, domain string) (*Registration, error) {
	db, err := CreateRegistrationsIfNotExists(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result := Registration{}
	err = db.Get(&result, "SELECT * FROM registrations WHERE region = ? AND domain = ? LIMIT 1;", region, domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not retrieve registration: %v", err)
	}
	return &result, nil
}
