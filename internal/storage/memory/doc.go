// Package memory provides the ephemeral-session substrate for SecureKV.
//
// Entries live in a sharded concurrent map and vanish when the store is
// closed or the process exits. Enumeration order for Key and Keys is
// lexical over a snapshot taken at call time.
package memory
