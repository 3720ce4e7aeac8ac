package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userRow struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`     // defaults to "learner"
	Password string `json:"password,omitempty"` // plaintext, hashed before storing
}

// BulkUpsertUsersHandler ingests a JSON array of users. Rows matching an
// existing id or username are updated (password only when provided); new rows
// need a password. The whole batch lands in one transaction.
func BulkUpsertUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected json array", http.StatusBadRequest)
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}
		inserted, updated, err := upsertUsers(r.Context(), db, rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted, "updated": updated})
	}
}

func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := strings.TrimSpace(r.URL.Query().Get("role"))
		var (
			rows *sql.Rows
			err  error
		)
		if role == "" {
			rows, err = db.QueryContext(r.Context(), `SELECT id,username,role FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(), `SELECT id,username,role FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []map[string]string{}
		for rows.Next() {
			var id, username, role string
			if err := rows.Scan(&id, &username, &role); err != nil {
				http.Error(w, "db error", http.StatusInternalServerError)
				return
			}
			out = append(out, map[string]string{"id": id, "username": username, "role": role})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func upsertUsers(ctx context.Context, db *sql.DB, rows []userRow) (inserted, updated int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	for _, row := range rows {
		row.Username = strings.TrimSpace(row.Username)
		if row.Username == "" {
			return inserted, updated, errors.New("username required")
		}
		row.Role = strings.ToLower(strings.TrimSpace(row.Role))
		if row.Role == "" {
			row.Role = "learner"
		}
		if row.Role != "learner" && row.Role != "instructor" && row.Role != "admin" {
			return inserted, updated, errors.New("invalid role: " + row.Role)
		}
		var phash string
		if row.Password != "" {
			var b []byte
			b, err = bcrypt.GenerateFromPassword([]byte(row.Password), 12)
			if err != nil {
				return inserted, updated, err
			}
			phash = string(b)
		}

		// Match by id or username so re-imports without ids stay idempotent.
		var existingID string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 OR username=$2`, row.ID, row.Username).Scan(&existingID)
		switch {
		case err == nil:
			if phash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
					row.Username, row.Role, phash, existingID)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2 WHERE id=$3`,
					row.Username, row.Role, existingID)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if phash == "" {
				return inserted, updated, errors.New("password required for new user: " + row.Username)
			}
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
				row.ID, row.Username, phash, row.Role, now); err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return
}
