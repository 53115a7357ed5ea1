package user

import (
	"context"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	. "github.com/Theadekanmi/softspace/pkg/common"
)

var (
	userID     = "1"
	email      = "ada@softspace.local"
	fullName   = "Ada Lovelace"
	password   = "sdfsdfsdf"
	salt       = "12345678"
	hashedPass = HashPass(password, salt)
)

func TestGetById(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	defer db.Close()

	r := NewUserRepo(db)

	t.Run("should return user", func(t *testing.T) {
		expect := &User{Id: userID, Email: email, FullName: fullName}

		rows := sqlmock.NewRows([]string{"id", "email", "full_name"})
		rows.AddRow(expect.Id, expect.Email, expect.FullName)

		mock.
			ExpectQuery("SELECT id, email, full_name FROM users where").
			WithArgs(userID).
			WillReturnRows(rows)

		gotUser, err := r.GetById(context.TODO(), userID)
		if err != nil {
			t.Errorf("unexpected err: %s", err)
			return
		}
		assert.Equal(t, expect, gotUser)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return DB error", func(t *testing.T) {
		expectedErr := fmt.Errorf("mock_db_error")
		mock.
			ExpectQuery("SELECT id, email, full_name FROM users where").
			WithArgs(userID).
			WillReturnError(expectedErr)
		_, err = r.GetById(context.TODO(), userID)
		assert.ErrorIs(t, err, expectedErr)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})
}

func TestRepoAdd(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	defer db.Close()
	repo := NewUserRepo(db)
	testUser := &User{Id: userID, Email: email, FullName: fullName, Password: hashedPass}

	t.Run("should add new user and return generated id", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id"}).AddRow(userID)
		mock.
			ExpectQuery("INSERT INTO users").
			WithArgs(email, fullName, hashedPass).
			WillReturnRows(rows)

		addedUserId, err := repo.Add(testUser)
		if err != nil {
			t.Errorf("unexpected error %s", err)
			return
		}
		assert.Equal(t, addedUserId, userID)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return query error", func(t *testing.T) {
		expectedErr := fmt.Errorf("bad query")
		mock.
			ExpectQuery("INSERT INTO users").
			WithArgs(email, fullName, hashedPass).
			WillReturnError(expectedErr)
		_, err = repo.Add(testUser)
		assert.ErrorIs(t, err, expectedErr)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return error when no id row comes back", func(t *testing.T) {
		mock.
			ExpectQuery("INSERT INTO users").
			WithArgs(email, fullName, hashedPass).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		_, err = repo.Add(testUser)
		assert.ErrorContains(t, err, "user wasn't added")
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})
}

func TestGetByEmailAndPass(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	defer db.Close()
	r := NewUserRepo(db)
	expect := &User{Id: userID, Email: email, FullName: fullName, Password: hashedPass}

	t.Run("should return user", func(t *testing.T) {
		row := sqlmock.NewRows([]string{"id", "email", "full_name", "password"}).
			AddRow(expect.Id, expect.Email, expect.FullName, expect.Password)
		mock.
			ExpectQuery("SELECT id, email, full_name, password FROM users where email").
			WithArgs(email).
			WillReturnRows(row)

		gotUser, err := r.GetByEmailAndPass(email, password)
		if err != nil {
			t.Errorf("unexpected err: %s", err)
			return
		}
		assert.Equal(t, expect, gotUser)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return error: bad password", func(t *testing.T) {
		row := sqlmock.NewRows([]string{"id", "email", "full_name", "password"}).
			AddRow(expect.Id, expect.Email, expect.FullName, expect.Password)
		mock.
			ExpectQuery("SELECT id, email, full_name, password FROM users where email").
			WithArgs(email).
			WillReturnRows(row)
		_, err := r.GetByEmailAndPass(email, "badpassword")
		assert.ErrorContains(t, err, "password is invalid")
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return error: DB error", func(t *testing.T) {
		expectedErr := fmt.Errorf("mock_db_error")
		mock.
			ExpectQuery("SELECT id, email, full_name, password FROM users where email").
			WithArgs(email).
			WillReturnError(expectedErr)
		_, err = r.GetByEmailAndPass(email, password)
		assert.ErrorIs(t, err, expectedErr)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})
}

func TestUserExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("cant create mock: %s", err)
	}
	defer db.Close()
	r := NewUserRepo(db)

	t.Run("should return true", func(t *testing.T) {
		existingUser := &User{Id: userID}
		rows := sqlmock.NewRows([]string{"id"})
		rows.AddRow(existingUser.Id)
		mock.
			ExpectQuery("SELECT id FROM users where").
			WithArgs(email).
			WillReturnRows(rows)
		exists := r.UserExists(email)
		assert.Equal(t, exists, true)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})

	t.Run("should return false", func(t *testing.T) {
		expectedErr := fmt.Errorf("no rows")
		mock.
			ExpectQuery("SELECT id FROM users where").
			WithArgs(email).
			WillReturnError(expectedErr)
		exists := r.UserExists(email)
		assert.Equal(t, exists, false)
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations unfulfilled: %s", err)
			return
		}
	})
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		u    User
		want string
	}{
		{"full name wins", User{Email: "ada@softspace.local", FullName: "Ada Lovelace"}, "Ada Lovelace"},
		{"email local part", User{Email: "ada@softspace.local"}, "ada"},
		{"email without at sign", User{Email: "ada"}, "ada"},
		{"nothing at all", User{}, "User"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.u.DisplayName())
		})
	}
}
