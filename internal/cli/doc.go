// Package cli implements the linemuxctl command tree.
//
// Every command connects to the service, runs one exchange and closes:
//
//	linemuxctl ping
//	linemuxctl call stat /etc
//	linemuxctl stream list / --limit 10
//
// Arguments after the call name are parsed as JSON when they are valid JSON
// and passed as strings otherwise, so `call slow 250` sends the number 250
// and `call stat /etc` sends the string "/etc".
//
// Output is text by default; --format json prints one JSON object per
// message and --format yaml one YAML document per message.
package cli
