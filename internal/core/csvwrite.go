package core

import (
	"encoding/csv"
	"io"
)

// WriteUsersCSV writes users as flat CSV with one column per distinct key,
// in first-seen order. A user without a column gets an empty value there.
// comma selects the delimiter; zero means ','.
//
// Reading the output back and reshaping each row reproduces the users,
// apart from their IDs, when they share the same keys.
func WriteUsersCSV(w io.Writer, users []User, comma rune) error {
	records := make([]RawRecord, len(users))
	header := []string{keyFirstName, keyLastName, keyAge}
	seen := map[string]bool{keyFirstName: true, keyLastName: true, keyAge: true}

	for i, u := range users {
		records[i] = u.Flatten()
		for _, k := range records[i].Keys() {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for j, k := range header {
			row[j], _ = rec.Get(k)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
