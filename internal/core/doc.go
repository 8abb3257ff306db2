// Package core provides the business logic for loading users from CSV files
// into PostgreSQL and reporting their age distribution.
//
// The package holds all domain logic independent of any transport. The web
// handlers and the csvusers CLI both drive it through [Service].
//
// # Records and Reshaping
//
// A CSV row is read as a [RawRecord]: header names mapped to trimmed cell
// values, in column order. Headers use dots to encode nesting
// ("address.city", "contact.phone.home"). [Reshape] turns a record into a
// [User]:
//
//	name.firstName + name.lastName  -> Name ("Ann Lee")
//	age                             -> Age (leading integer, else 0)
//	address.*                       -> Address (flat)
//	everything else                 -> AdditionalInfo (nested by dot segment)
//
// # Streaming Ingestion
//
// [StreamRecords] reads a file once and hands records to a callback in
// batches, so memory stays O(batch size) regardless of file size. The flow
// for [Service.ProcessFile] is:
//
//  1. The file is checked and an ingest slot is taken from the [IngestLimiter]
//  2. Bytes are decoded to clean UTF-8 (BOM dropped, invalid bytes replaced)
//  3. Each batch is reshaped and written by [Store.SaveUsers], one transaction
//     per batch; a failing batch is rolled back and stops the run
//  4. The age distribution is computed from a single aggregate query
//
// # Age Distribution
//
// [Distribute] turns bracket counts into whole percentages that sum to 100
// (or are all zero for an empty table). See its documentation for the exact
// rounding rule.
//
// # Error Handling
//
// Errors carry a [Kind] (see [Error]) and are mapped to user-facing messages
// by [MapError]. Each category has a code for support reference:
//
//   - FILE001-FILE006: File errors (missing, malformed, wrong type, too large)
//   - DB000-DB008: Database errors (constraints, connections, timeouts)
//   - VAL000-VAL002: Request validation errors
//   - REQ001-REQ002: Canceled or timed out requests
//   - ING001, RATE001: Capacity limits
package core
