package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(kv ...string) RawRecord {
	var r RawRecord
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func TestReshape_Example(t *testing.T) {
	got := Reshape(rec(
		"name.firstName", "Ann",
		"name.lastName", "Lee",
		"age", "25",
		"address.city", "NY",
	))

	want := User{Name: "Ann Lee", Age: 25, Address: Fields{{"city", "NY"}}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Info{})); diff != "" {
		t.Errorf("Reshape() mismatch (-want +got):\n%s", diff)
	}

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ann Lee","age":25,"address":{"city":"NY"},"additionalInfo":{}}`, string(b))
}

func TestReshape_AdditionalInfoNesting(t *testing.T) {
	got := Reshape(rec(
		"name.firstName", "Rohit",
		"name.lastName", "Prasad",
		"age", "35",
		"address.line1", "A-563 Rakshak Society",
		"address.city", "Pune",
		"gender", "male",
		"contact.phone.home", "123",
		"contact.email", "r@p.in",
	))

	assert.Equal(t, "Rohit Prasad", got.Name)
	assert.Equal(t, 35, got.Age)
	assert.Equal(t, Fields{{"line1", "A-563 Rakshak Society"}, {"city", "Pune"}}, got.Address)

	b, err := json.Marshal(got.AdditionalInfo)
	require.NoError(t, err)
	assert.Equal(t, `{"gender":"male","contact":{"phone":{"home":"123"},"email":"r@p.in"}}`, string(b))
}

func TestReshape_Name(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Ann", "Lee", "Ann Lee"},
		{"Ann", "", "Ann"},
		{"", "Lee", "Lee"},
		{"", "", ""},
		{"  Ann", "Lee  ", "Ann Lee"},
		{"Ann ", "Lee", "Ann  Lee"},
		{"Ann", " Lee", "Ann  Lee"},
		{"Ann ", "", "Ann"},
	}
	for _, tt := range tests {
		got := Reshape(rec("name.firstName", tt.first, "name.lastName", tt.last))
		assert.Equal(t, tt.want, got.Name, "first=%q last=%q", tt.first, tt.last)
	}

	assert.Equal(t, "", Reshape(rec("age", "3")).Name, "missing name keys")
}

func TestReshape_LaterKeyWins(t *testing.T) {
	t.Run("nested replaces leaf", func(t *testing.T) {
		u := Reshape(rec("a", "1", "a.b", "2"))
		v, ok := u.AdditionalInfo.lookup("a", "b")
		assert.True(t, ok)
		assert.Equal(t, "2", v)
	})

	t.Run("leaf replaces nested", func(t *testing.T) {
		u := Reshape(rec("a.b", "2", "a", "1"))
		v, ok := u.AdditionalInfo.lookup("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
	})
}

func TestReshape_DoesNotModifyInput(t *testing.T) {
	in := rec("name.firstName", "Ann", "address.city", "NY", "x.y", "z")
	before := slices.Clone(in)

	Reshape(in)
	assert.Equal(t, before, in)
}

func TestReshape_AddressKeysNeverLeak(t *testing.T) {
	for i := range 20 {
		r := rec(
			"name.firstName", fmt.Sprintf("n%d", i),
			"age", fmt.Sprint(i*7),
			fmt.Sprintf("address.k%d", i), "v",
			fmt.Sprintf("extra.k%d", i), "w",
		)
		u := Reshape(r)

		assert.Equal(t, 1, len(u.Address))
		for _, f := range u.AdditionalInfo.Flatten() {
			assert.NotContains(t, []string{"age", "name.firstName", "name.lastName"}, f.Key)
			assert.NotRegexp(t, `^address\.`, f.Key)
		}
	}
}

func TestUser_FlattenRoundTrip(t *testing.T) {
	original := Reshape(rec(
		"name.firstName", "Ann",
		"name.lastName", "Lee",
		"age", "25",
		"address.city", "NY",
		"contact.email", "a@b.c",
	))

	again := Reshape(original.Flatten())
	if diff := cmp.Diff(original, again, cmp.AllowUnexported(Info{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"25", 25},
		{" 25 ", 25},
		{"25 years", 25},
		{"+7", 7},
		{"-3", -3},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-", 0},
		{"3.9", 3},
		{"99999999999", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAge(tt.in), "ParseAge(%q)", tt.in)
	}
}
