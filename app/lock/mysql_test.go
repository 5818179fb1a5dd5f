package lock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMySQLLockerAcquireRelease(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	locker := NewMySQLLocker(db)
	key := EmailKey("msg-1")
	mock.ExpectQuery("SELECT GET_LOCK").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"acquired"}).AddRow(1))

	if err := locker.Acquire(context.Background(), key, 2*time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := locker.Acquire(context.Background(), key, 2*time.Minute); !errors.Is(err, ErrAlreadyHeld) {
		t.Fatalf("expected ErrAlreadyHeld, got %v", err)
	}

	mock.ExpectExec("SELECT RELEASE_LOCK").
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := locker.Release(context.Background(), key); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMySQLLockerNotAcquired(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	locker := NewMySQLLocker(db)
	mock.ExpectQuery("SELECT GET_LOCK").
		WithArgs("lock-key").
		WillReturnRows(sqlmock.NewRows([]string{"acquired"}).AddRow(0))

	if err := locker.Acquire(context.Background(), "lock-key", time.Minute); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMySQLLockerNullResult(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	locker := NewMySQLLocker(db)
	mock.ExpectQuery("SELECT GET_LOCK").
		WithArgs("lock-key").
		WillReturnRows(sqlmock.NewRows([]string{"acquired"}).AddRow(nil))

	if err := locker.Acquire(context.Background(), "lock-key", time.Minute); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestLockNameHashesLongKeys(t *testing.T) {
	t.Parallel()

	short := EmailKey("3f1c2b7e-0d4a-4f4e-9b1a-2c5d6e7f8a9b")
	if got := lockName(short); got != short {
		t.Fatalf("expected short key unchanged, got %q", got)
	}

	long := EmailKey(strings.Repeat("x", 80))
	got := lockName(long)
	if len(got) > mysqlMaxLockName {
		t.Fatalf("expected name within %d chars, got %d", mysqlMaxLockName, len(got))
	}
	if got != lockName(long) {
		t.Fatalf("expected stable name")
	}
}
