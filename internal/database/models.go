package database

// User is a row of the users table. Address and AdditionalInfo hold raw
// JSONB and are nil for SQL NULL.
type User struct {
	ID             int32  `json:"id"`
	Name           string `json:"name"`
	Age            int32  `json:"age"`
	Address        []byte `json:"address"`
	AdditionalInfo []byte `json:"additional_info"`
}
