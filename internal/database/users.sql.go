package database

import (
	"context"
	"strconv"
	"strings"
)

const insertUser = `-- name: InsertUser :one
INSERT INTO users (name, age, address, additional_info)
VALUES ($1, $2, $3, $4)
RETURNING id, name, age, address, additional_info
`

type InsertUserParams struct {
	Name           string `json:"name"`
	Age            int32  `json:"age"`
	Address        []byte `json:"address"`
	AdditionalInfo []byte `json:"additional_info"`
}

func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (User, error) {
	row := q.db.QueryRow(ctx, insertUser,
		arg.Name,
		arg.Age,
		arg.Address,
		arg.AdditionalInfo,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Age,
		&i.Address,
		&i.AdditionalInfo,
	)
	return i, err
}

const insertUsersPrefix = `-- name: InsertUsers :execrows
INSERT INTO users (name, age, address, additional_info)
VALUES `

// insertUsersColumns is the number of bind parameters per row.
const insertUsersColumns = 4

// InsertUsers writes every row with a single multi-row INSERT and returns
// the number of rows written. The caller keeps len(args)*4 under
// PostgreSQL's 65535 bind parameter limit.
func (q *Queries) InsertUsers(ctx context.Context, args []InsertUserParams) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(insertUsersPrefix)
	params := make([]interface{}, 0, len(args)*insertUsersColumns)
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * insertUsersColumns
		sb.WriteString("(")
		for c := 1; c <= insertUsersColumns; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(base + c))
		}
		sb.WriteString(")")
		params = append(params, arg.Name, arg.Age, arg.Address, arg.AdditionalInfo)
	}

	result, err := q.db.Exec(ctx, sb.String(), params...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getAgeCounts = `-- name: GetAgeCounts :one
SELECT
    COUNT(*) FILTER (WHERE age < 20)              AS under_20,
    COUNT(*) FILTER (WHERE age >= 20 AND age < 40) AS between_20_and_40,
    COUNT(*) FILTER (WHERE age >= 40 AND age < 60) AS between_40_and_60,
    COUNT(*) FILTER (WHERE age >= 60)             AS over_60,
    COUNT(*)                                      AS total
FROM users
`

type GetAgeCountsRow struct {
	Under20        int64 `json:"under_20"`
	Between20And40 int64 `json:"between_20_and_40"`
	Between40And60 int64 `json:"between_40_and_60"`
	Over60         int64 `json:"over_60"`
	Total          int64 `json:"total"`
}

func (q *Queries) GetAgeCounts(ctx context.Context) (GetAgeCountsRow, error) {
	row := q.db.QueryRow(ctx, getAgeCounts)
	var i GetAgeCountsRow
	err := row.Scan(
		&i.Under20,
		&i.Between20And40,
		&i.Between40And60,
		&i.Over60,
		&i.Total,
	)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, name, age, address, additional_info
FROM users
ORDER BY id
LIMIT $1 OFFSET $2
`

type ListUsersParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Age,
			&i.Address,
			&i.AdditionalInfo,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteUsers = `-- name: DeleteUsers :execrows
DELETE FROM users
`

func (q *Queries) DeleteUsers(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUsers)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
