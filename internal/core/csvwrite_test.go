package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUsersCSV_RoundTrip(t *testing.T) {
	users := []User{
		Reshape(rec("name.firstName", "Ann", "name.lastName", "Lee", "age", "25",
			"address.city", "NY", "contact.email", "ann@example.com", "gender", "female")),
		Reshape(rec("name.firstName", "Bo", "name.lastName", "Chen", "age", "61",
			"address.city", "SF", "contact.email", "bo@example.com", "gender", "male")),
	}
	users[0].ID, users[1].ID = 7, 8

	var buf bytes.Buffer
	require.NoError(t, WriteUsersCSV(&buf, users, 0))

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	records, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for i, r := range records {
		want := users[i]
		want.ID = 0
		if diff := cmp.Diff(want, Reshape(r), cmp.AllowUnexported(Info{})); diff != "" {
			t.Errorf("user %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestWriteUsersCSV_HeaderUnion(t *testing.T) {
	users := []User{
		Reshape(rec("name.firstName", "Ann", "age", "25", "gender", "female")),
		Reshape(rec("name.firstName", "Bo", "age", "30", "address.city", "SF")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteUsersCSV(&buf, users, ';'))

	assert.Equal(t,
		"name.firstName;name.lastName;age;gender;address.city\n"+
			"Ann;;25;female;\n"+
			"Bo;;30;;SF\n",
		buf.String())
}

func TestWriteUsersCSV_NoUsers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUsersCSV(&buf, nil, 0))
	assert.Equal(t, "name.firstName,name.lastName,age\n", buf.String())
}
