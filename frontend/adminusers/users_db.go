package adminusers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"batchledger/frontend/login"
	"batchledger/infrastructure/argon"
	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/errs"
	"batchledger/infrastructure/rbac"
	"batchledger/infrastructure/sqlite"
)

var ErrUsernameExists = errors.New("username already exists")

func ListUsers(ctx context.Context, db *sqlite.DB) ([]UserView, error) {
	users := make([]UserView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw("SELECT id, username, role FROM users ORDER BY LOWER(username) ASC").Scan(ctx, &users)
	})
	return users, err
}

// CreateUser adds a login. Usernames are unique ignoring case.
func CreateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, username, password, role string) (UserView, error) {
	const op = "adminusers.CreateUser"
	username = strings.TrimSpace(username)
	if username == "" {
		return UserView{}, errs.Errorf(op, errs.InvalidInput, "username is required")
	}
	if !rbac.ValidRole(role) {
		return UserView{}, errs.Errorf(op, errs.InvalidInput, "unknown role %q", role)
	}
	if err := login.ValidatePasswordPolicy(password); err != nil {
		return UserView{}, errs.E(op, errs.InvalidInput, err)
	}
	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return UserView{}, errs.E(op, errs.Other, err)
	}

	view := UserView{Username: username, Role: role}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var existing int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM users WHERE LOWER(username) = ?`, strings.ToLower(username)).Scan(ctx, &existing); err != nil {
			return err
		}
		if existing > 0 {
			return errs.E(op, errs.Conflict, ErrUsernameExists)
		}
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
INSERT INTO users (username, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, username, hash, role, now, now)
		if err != nil {
			return err
		}
		if view.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, audit.Entry{
			UserID:     actorID,
			Action:     audit.ActionUserCreate,
			EntityType: "user",
			EntityID:   view.Username,
			After:      view,
		})
	})
	if err != nil {
		if errs.KindOf(err) != errs.Other {
			return UserView{}, err
		}
		if sqlite.IsUniqueViolation(err) {
			return UserView{}, errs.E(op, errs.Conflict, ErrUsernameExists)
		}
		return UserView{}, errs.E(op, errs.Other, err)
	}
	return view, nil
}
