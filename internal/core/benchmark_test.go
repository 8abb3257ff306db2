package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ============================================================================
// Reshape Benchmarks
// ============================================================================

// BenchmarkReshape covers the per-row hot path of every ingest.
func BenchmarkReshape(b *testing.B) {
	r := rec(
		"name.firstName", "Rohit",
		"name.lastName", "Prasad",
		"age", "35",
		"address.line1", "A-563 Rakshak Society",
		"address.line2", "New Pune Road",
		"address.city", "Pune",
		"address.state", "Maharashtra",
		"gender", "male",
		"contact.phone.home", "020-555",
		"contact.phone.mobile", "98-555",
		"contact.email", "rohit@example.com",
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Reshape(r)
	}
}

// BenchmarkReshape_DeepNesting benchmarks long dotted keys.
func BenchmarkReshape_DeepNesting(b *testing.B) {
	r := rec(
		"a.b.c.d.e.f.g", "1",
		"a.b.c.d.e.f.h", "2",
		"a.b.c.x", "3",
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Reshape(r)
	}
}

// BenchmarkParseAge benchmarks lenient age parsing.
func BenchmarkParseAge(b *testing.B) {
	inputs := []string{"25", " 61 ", "17 years", "", "n/a"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, in := range inputs {
			ParseAge(in)
		}
	}
}

// ============================================================================
// Distribution Benchmarks
// ============================================================================

func BenchmarkDistribute(b *testing.B) {
	c := AgeCounts{Under20: 1, From20To40: 1, From40To60: 3, Over60: 3, Total: 8}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Distribute(c)
	}
}

// ============================================================================
// CSV Streaming Benchmarks
// ============================================================================

// generateCSV writes a users file with the given number of rows.
func generateCSV(b *testing.B, rows int) string {
	b.Helper()
	var sb strings.Builder
	sb.WriteString("name.firstName,name.lastName,age,address.city,address.zip,gender,contact.email\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "First%d,Last%d,%d,City%d,%05d,x,u%d@example.com\n", i, i, i%90, i%50, i, i)
	}

	path := filepath.Join(b.TempDir(), "users.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		b.Fatal(err)
	}
	return path
}

// BenchmarkStreamRecords measures read + decode + batch without a database.
func BenchmarkStreamRecords(b *testing.B) {
	for _, rows := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			path := generateCSV(b, rows)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := StreamRecords(ctx, path, DefaultBatchSize, func(_ context.Context, batch []RawRecord) error {
					for _, r := range batch {
						Reshape(r)
					}
					return nil
				})
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSaveUsers measures batching overhead against the in-memory pool.
func BenchmarkSaveUsers(b *testing.B) {
	users := sampleUsers(5000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store := NewStore(newMemDB(), DefaultBatchSize)
		if _, err := store.SaveUsers(ctx, users); err != nil {
			b.Fatal(err)
		}
	}
}
