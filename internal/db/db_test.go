package db

import (
	"context"
	"errors"
	"testing"
)

type entry struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.PutJSON(ctx, "auth-storage", entry{Token: "tok", UserID: 5}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var got entry
	if err := db.GetJSON(ctx, "auth-storage", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got.Token != "tok" || got.UserID != 5 {
		t.Fatalf("got %+v", got)
	}

	if err := db.Delete(ctx, "auth-storage"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.GetJSON(ctx, "auth-storage", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := db.Delete(ctx, "auth-storage"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.PutJSON(ctx, "k", entry{Token: "a"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	db.Close()

	db, err = New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var got entry
	if err := db.GetJSON(ctx, "k", &got); err != nil || got.Token != "a" {
		t.Fatalf("got %+v, %v", got, err)
	}
}
