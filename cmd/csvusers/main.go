// Command csvusers runs CSV user ingestion and reporting from the shell
// against the same database the server uses.
package main

import "os"

func main() {
	os.Exit(run(&app{}, os.Args[1:], os.Stdout, os.Stderr))
}
