package core

import (
	"math"
	"strconv"
	"strings"
)

const (
	keyFirstName  = "name.firstName"
	keyLastName   = "name.lastName"
	keyAge        = "age"
	addressPrefix = "address."
)

// Reshape turns a flat record into a User.
//
// name.firstName and name.lastName are joined with one space and the
// result is trimmed; whitespace inside the join is kept.
// age is parsed leniently (see ParseAge). Keys under address. become flat
// Address entries. Every other key is folded into AdditionalInfo, one
// nesting level per dot segment. When two keys collide the later one wins.
//
// rec is not modified.
func Reshape(rec RawRecord) User {
	first, _ := rec.Get(keyFirstName)
	last, _ := rec.Get(keyLastName)
	ageText, _ := rec.Get(keyAge)

	u := User{
		Name:    strings.TrimSpace(first + " " + last),
		Age:     ParseAge(ageText),
		Address: Fields{},
	}

	for _, f := range rec {
		switch {
		case f.Key == keyFirstName, f.Key == keyLastName, f.Key == keyAge:
			continue
		case strings.HasPrefix(f.Key, addressPrefix):
			u.Address.Set(strings.TrimPrefix(f.Key, addressPrefix), f.Value)
		default:
			insertPath(&u.AdditionalInfo, splitKey(f.Key), f.Value)
		}
	}

	return u
}

// insertPath stores value at the nested location named by path, replacing
// whatever leaf or level was in the way.
func insertPath(root *Info, path []string, value string) {
	cur := root
	for _, seg := range path[:len(path)-1] {
		v, ok := cur.Get(seg)
		if !ok || v.IsLeaf() {
			next := &Info{}
			cur.Set(seg, NestedValue(next))
			cur = next
			continue
		}
		cur = v.Nested
	}
	cur.Set(path[len(path)-1], LeafValue(value))
}

// ParseAge reads a leading optional sign followed by decimal digits, the
// way "25", "25 years" and "+7" are all read as numbers. Anything else,
// including values outside the int32 range, yields 0.
func ParseAge(s string) int {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
		return 0
	}
	return int(n)
}
