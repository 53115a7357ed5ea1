package user

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/Theadekanmi/softspace/pkg/common"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

// Add inserts the user and returns the generated id. The pgx driver
// does not implement LastInsertId, so the id comes back via RETURNING.
func (r *UserRepo) Add(u *User) (string, error) {
	row := r.db.QueryRow("INSERT INTO users(email, full_name, password) VALUES($1, $2, $3) RETURNING id",
		u.Email, u.FullName, u.Password)
	var id string
	if err := row.Scan(&id); err != nil {
		return ``, fmt.Errorf("user/repo: user wasn't added: %w", err)
	}
	return id, nil
}

func (r *UserRepo) GetByEmailAndPass(email string, pass string) (*User, error) {
	row := r.db.QueryRow("SELECT id, email, full_name, password FROM users where email=$1", email)
	u := new(User)
	if err := row.Scan(&u.Id, &u.Email, &u.FullName, &u.Password); err != nil {
		return nil, fmt.Errorf("user/repo: row scan failed: %w", err)
	}
	// User found by email, now check if passwords are the same
	salt := string(u.Password[0:8])
	if !bytes.Equal(common.HashPass(pass, salt), u.Password) {
		return nil, errors.New("user/repo: password is invalid")
	}
	return u, nil
}

func (r *UserRepo) UserExists(email string) bool {
	row := r.db.QueryRow("SELECT id FROM users where email=$1", email)
	u := new(User)
	if err := row.Scan(&u.Id); err != nil {
		log.Printf("user/repo: could not scan row: %v", err)
		return false
	}
	return true
}

func (r *UserRepo) GetById(ctx context.Context, uid string) (*User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id, email, full_name FROM users where id=$1", uid)
	u := new(User)
	if err := row.Scan(&u.Id, &u.Email, &u.FullName); err != nil {
		return u, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return u, nil
}

// Returns all users. Used only for seeding the DB.
func (r *UserRepo) GetAll() ([]*User, error) {
	rows, err := r.db.Query("SELECT id, email, full_name, password FROM users")
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed executing query for getting all users: %w", err)
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u := new(User)
		err := rows.Scan(&u.Id, &u.Email, &u.FullName, &u.Password)
		if err != nil {
			return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
		}
		users = append(users, u)
	}

	return users, nil
}
